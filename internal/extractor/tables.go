package extractor

import (
	"github.com/avvvet/deliverybuddy/internal/models"
	"github.com/avvvet/deliverybuddy/internal/rules"
)

// Food categories understood by the directory search.
const (
	FoodPizza    = "pizza"
	FoodBurger   = "hamburguer"
	FoodHotDog   = "hot dog"
	FoodSushi    = "sushi"
	FoodSnack    = "lanche"
	FoodPastel   = "pastel"
	FoodAcai     = "açaí"
	FoodBarbecue = "churrasco"
	FoodChinese  = "chinesa"
)

// FoodRules maps keywords to a food category. Hot dog precedes lanche so
// "cachorro quente" is not classified as a generic snack.
var FoodRules = rules.Concat(
	rules.Group(FoodPizza, "pizza", "pizzaria"),
	rules.Group(FoodBurger, "hambúrguer", "hamburguer", "hamburger", "burger", "burguer", "x-tudo", "x-salada", "x-bacon"),
	rules.Group(FoodHotDog, "hot dog", "hotdog", "cachorro quente", "cachorro-quente"),
	rules.Group(FoodSushi, "sushi", "sashimi", "temaki", "comida japonesa", "uramaki"),
	rules.Group(FoodSnack, "lanche", "sanduíche", "sanduiche", "misto quente"),
	rules.Group(FoodPastel, "pastel", "pasteis", "pastéis"),
	rules.Group(FoodAcai, "açaí", "acai"),
	rules.Group(FoodBarbecue, "churrasco", "espetinho", "picanha", "costela"),
	rules.Group(FoodChinese, "comida chinesa", "chinesa", "yakisoba", "rolinho primavera"),
)

// PaymentRules resolves the payment method. Card is checked before cash and pix, so a
// message naming both card and pix resolves to card.
var PaymentRules = rules.Concat(
	rules.Group(models.PaymentCard, "cartão", "cartao", "crédito", "credito", "débito", "debito"),
	rules.Group(models.PaymentCash, "dinheiro", "espécie", "especie"),
	rules.Group(models.PaymentPix, "pix"),
)

// nameStopwords are single words that stand alone in a message without being a name.
var nameStopwords = map[string]bool{
	"oi": true, "ola": true, "olá": true, "opa": true, "bom": true, "boa": true,
	"sim": true, "nao": true, "não": true, "ok": true, "okay": true, "beleza": true,
	"obrigado": true, "obrigada": true, "valeu": true, "isso": true, "certo": true,
	"quero": true, "hello": true, "hi": true, "yes": true, "no": true, "thanks": true,
	"de": true, "da": true, "do": true, "em": true, "na": true,
	"aqui": true, "cliente": true, "fome": true, "hungry": true, "pronto": true,
}
