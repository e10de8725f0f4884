package directory

import "github.com/avvvet/deliverybuddy/internal/extractor"

// brandKeywords ranks well-known chains and name fragments per category. Earlier
// entries score higher when they appear in a search hit.
var brandKeywords = map[string][]string{
	extractor.FoodPizza:    {"domino", "pizza hut", "patroni", "pizzaria", "forno", "napoli", "cantina"},
	extractor.FoodBurger:   {"madero", "burger king", "mcdonald", "bob's", "hamburgueria", "burger", "smash", "lanche"},
	extractor.FoodHotDog:   {"hot dog", "cachorro quente", "dogão", "dog"},
	extractor.FoodSushi:    {"temakeria", "sushi", "japa", "oriental", "nikkei"},
	extractor.FoodSnack:    {"subway", "lanchonete", "lanches", "bob's", "sanduicheria"},
	extractor.FoodPastel:   {"pastelaria", "pastel", "feira"},
	extractor.FoodAcai:     {"oakberry", "açaí", "acai", "sorveteria"},
	extractor.FoodBarbecue: {"fogo de chão", "churrascaria", "espeto", "grill", "steak"},
	extractor.FoodChinese:  {"china in box", "wok", "china", "chinês", "oriental"},
}

// fallbackNames fill the list when too few establishments expose a reachable number.
var fallbackNames = map[string][]string{
	extractor.FoodPizza:    {"Pizzaria Bella Napoli", "Pizzaria Forno a Lenha", "Pizzaria Dom Giovanni"},
	extractor.FoodBurger:   {"Hamburgueria do Chef", "Smash Burger Artesanal", "Burger House"},
	extractor.FoodHotDog:   {"Dogão do Bairro", "Hot Dog Prensado", "Cachorro Quente da Praça"},
	extractor.FoodSushi:    {"Sushi Kaizen", "Temakeria Sakura", "Japa Delivery"},
	extractor.FoodSnack:    {"Lanchonete Central", "Sanduicheria Sabor & Cia", "Lanches do Ponto"},
	extractor.FoodPastel:   {"Pastelaria Sabor Oriental", "Pastel da Feira", "Pastelaria Dourada"},
	extractor.FoodAcai:     {"Açaí da Praia", "Açaíteria Tropical", "Point do Açaí"},
	extractor.FoodBarbecue: {"Churrascaria Gaúcha", "Espetinho do Zé", "Grill Prime"},
	extractor.FoodChinese:  {"China Wok Express", "Restaurante Dragão Dourado", "Yakisoba da Casa"},
}

var defaultFallbackNames = []string{"Sabor Caseiro Delivery", "Cantina da Esquina", "Delivery Express"}

var specialties = map[string]string{
	extractor.FoodPizza:    "Pizzas tradicionais e especiais",
	extractor.FoodBurger:   "Hambúrgueres artesanais",
	extractor.FoodHotDog:   "Cachorro-quente prensado",
	extractor.FoodSushi:    "Culinária japonesa",
	extractor.FoodSnack:    "Lanches e sanduíches",
	extractor.FoodPastel:   "Pastéis fritos na hora",
	extractor.FoodAcai:     "Açaí e complementos",
	extractor.FoodBarbecue: "Carnes na brasa",
	extractor.FoodChinese:  "Culinária chinesa",
}

// Specialty labels a candidate by its food category.
func Specialty(foodType string) string {
	if s, ok := specialties[foodType]; ok {
		return s
	}
	return "Delivery"
}

// FallbackNames returns the fallback establishment names for foodType.
func FallbackNames(foodType string) []string {
	if names, ok := fallbackNames[foodType]; ok {
		return names
	}
	return defaultFallbackNames
}

type span struct {
	min, max int
}

// deliveryMinutes is the typical delivery window per category.
var deliveryMinutes = map[string]span{
	extractor.FoodPizza:    {35, 50},
	extractor.FoodBurger:   {25, 40},
	extractor.FoodHotDog:   {20, 35},
	extractor.FoodSushi:    {40, 60},
	extractor.FoodSnack:    {20, 35},
	extractor.FoodPastel:   {20, 30},
	extractor.FoodAcai:     {15, 30},
	extractor.FoodBarbecue: {45, 70},
	extractor.FoodChinese:  {35, 55},
}

var defaultDeliveryMinutes = span{30, 45}

// priceReais is the usual ticket range per category, in reais.
var priceReais = map[string]span{
	extractor.FoodPizza:    {35, 70},
	extractor.FoodBurger:   {25, 50},
	extractor.FoodHotDog:   {15, 30},
	extractor.FoodSushi:    {50, 120},
	extractor.FoodSnack:    {15, 35},
	extractor.FoodPastel:   {10, 25},
	extractor.FoodAcai:     {15, 35},
	extractor.FoodBarbecue: {45, 90},
	extractor.FoodChinese:  {30, 60},
}

var defaultPriceReais = span{25, 50}
