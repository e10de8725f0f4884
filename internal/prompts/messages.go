package prompts

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/avvvet/deliverybuddy/internal/models"
)

// MaxRestaurantReply bounds auto-generated replies sent to restaurants.
const MaxRestaurantReply = 200

const (
	GenericErrorMessage = "Desculpe, algo deu errado por aqui. Pode tentar de novo em instantes?"
	PostOrderFallback   = "Seu pedido já está com o restaurante. Assim que eles responderem eu te aviso por aqui!"
)

// missingFieldQuestions is asked, in order, when the model is unavailable.
var missingFieldQuestions = []struct {
	missing  func(models.ExtractedOrder) bool
	question string
}{
	{func(o models.ExtractedOrder) bool { return o.ClientName == "" }, "Olá! Para começar, qual é o seu nome?"},
	{func(o models.ExtractedOrder) bool { return o.Food == "" }, "O que você gostaria de pedir hoje? Pizza, hambúrguer, sushi, açaí..."},
	{func(o models.ExtractedOrder) bool { return o.Address == "" }, "Qual é o endereço de entrega (rua, número e bairro)?"},
	{func(o models.ExtractedOrder) bool { return o.Phone == "" }, "Qual é o seu telefone com DDD para contato?"},
	{func(o models.ExtractedOrder) bool { return o.PaymentMethod == "" }, "Como prefere pagar: cartão, dinheiro ou pix?"},
	{func(o models.ExtractedOrder) bool { return o.PaymentMethod == models.PaymentCash && o.Change == "" }, "Vai precisar de troco? Para quanto?"},
}

// NextQuestion returns a fixed question for the first missing field.
func NextQuestion(order models.ExtractedOrder) string {
	for _, q := range missingFieldQuestions {
		if q.missing(order) {
			return q.question
		}
	}
	return "Está tudo certo com o seu pedido? Vou procurar os restaurantes para você."
}

// CandidateList renders the numbered restaurant choices.
func CandidateList(order models.ExtractedOrder, restaurants []models.Restaurant) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Perfeito, %s! Encontrei estas opções de %s em %s:\n\n",
		orDefault(order.ClientName, "cliente"), orDefault(order.FoodType, "delivery"), order.City))

	for i, r := range restaurants {
		builder.WriteString(fmt.Sprintf("%d. *%s* ⭐ %.1f\n", i+1, r.Name, r.Rating))
		builder.WriteString(fmt.Sprintf("   📍 %s\n", r.Address))
		builder.WriteString(fmt.Sprintf("   🕒 %s | 💰 %s\n", r.EstimatedTime, r.EstimatedPrice))
		builder.WriteString(fmt.Sprintf("   🍽️ %s\n\n", r.Specialty))
	}

	builder.WriteString(fmt.Sprintf("Responda com o número do restaurante (1 a %d) para eu enviar o seu pedido.", len(restaurants)))
	return builder.String()
}

func NotFound(order models.ExtractedOrder) string {
	return fmt.Sprintf("Não encontrei restaurantes de %s em %s agora. Quer tentar outro tipo de comida ou me dar mais detalhes do endereço?",
		orDefault(order.FoodType, "delivery"), orDefault(order.City, "sua cidade"))
}

func InvalidChoice(available int) string {
	if available == 0 {
		return "Não consegui confirmar os restaurantes agora. Tente de novo em alguns instantes, por favor."
	}
	return fmt.Sprintf("Não encontrei essa opção. Escolha um número de 1 a %d, por favor.", available)
}

// OrderMessage is the text delivered to the restaurant's WhatsApp.
func OrderMessage(order models.ExtractedOrder, restaurant models.Restaurant) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Olá, %s! Gostaria de fazer um pedido para entrega:\n\n", restaurant.Name))
	builder.WriteString(fmt.Sprintf("🍽️ Pedido: %s\n", order.Food))
	builder.WriteString(fmt.Sprintf("👤 Nome: %s\n", order.ClientName))
	builder.WriteString(fmt.Sprintf("📍 Endereço: %s, %s\n", order.Address, order.City))
	builder.WriteString(fmt.Sprintf("📞 Telefone: %s\n", order.Phone))
	builder.WriteString(fmt.Sprintf("💳 Pagamento: %s", order.PaymentMethod))
	if order.PaymentMethod == models.PaymentCash && order.Change != "" {
		builder.WriteString(fmt.Sprintf(" (troco para R$ %s)", order.Change))
	}
	builder.WriteString("\n\nPode me confirmar o valor e o tempo de entrega?")

	return builder.String()
}

func DispatchConfirmed(order models.ExtractedOrder, restaurant models.Restaurant) string {
	return fmt.Sprintf("Pronto, %s! Seu pedido foi enviado para *%s*. Previsão de entrega: %s. Vou te avisando por aqui conforme o restaurante responder. 🛵",
		orDefault(order.ClientName, "cliente"), restaurant.Name, orDefault(restaurant.EstimatedTime, "a confirmar"))
}

func DispatchFailed(restaurant models.Restaurant, available int) string {
	return fmt.Sprintf("Não consegui enviar o pedido para *%s* agora. Responda com o mesmo número para tentar de novo ou escolha outra opção (1 a %d).",
		restaurant.Name, available)
}

// ClientQuestion forwards a restaurant question to the client's own number.
func ClientQuestion(restaurantName, question string) string {
	return fmt.Sprintf("O restaurante *%s* perguntou:\n\n\"%s\"\n\nResponda pelo chat do app para eu repassar a sua resposta.", restaurantName, question)
}

// ClientAnswer relays the client's answer back to the restaurant.
func ClientAnswer(answer string) string {
	return strings.TrimSpace(answer)
}

func ConfirmationNotice(restaurant models.Restaurant) string {
	return fmt.Sprintf("✅ Boa notícia! O restaurante *%s* confirmou o seu pedido.", restaurant.Name)
}

// Reassurances are sent to the client after a confirmation, in order.
func Reassurances(restaurant models.Restaurant) []string {
	return []string{
		fmt.Sprintf("👨‍🍳 A equipe do %s já recebeu todos os detalhes do pedido.", restaurant.Name),
		"📋 Conferimos endereço, telefone e forma de pagamento com eles.",
		fmt.Sprintf("🕒 A previsão de entrega continua: %s.", orDefault(restaurant.EstimatedTime, "a confirmar")),
		"🛵 Eu te aviso aqui assim que o pedido sair para entrega. Bom apetite!",
	}
}

// StatusUpdate notifies the client of a preparing or out-for-delivery change.
func StatusUpdate(status models.OrderStatus, restaurant models.Restaurant) string {
	switch status {
	case models.OrderPreparing:
		return fmt.Sprintf("👨‍🍳 Seu pedido já está sendo preparado pelo %s!", restaurant.Name)
	case models.OrderOutForDelivery:
		return fmt.Sprintf("🛵 Seu pedido do %s saiu para entrega! Fique de olho na campainha.", restaurant.Name)
	default:
		return fmt.Sprintf("Atualização do seu pedido no %s: %s.", restaurant.Name, StatusLabel(status))
	}
}

// StatusLabel is a human description of an order status.
func StatusLabel(status models.OrderStatus) string {
	switch status {
	case models.OrderSent:
		return "enviado, aguardando resposta do restaurante"
	case models.OrderWaitingClientResponse:
		return "o restaurante aguarda uma resposta do cliente"
	case models.OrderConfirmed:
		return "confirmado pelo restaurante"
	case models.OrderPreparing:
		return "em preparo"
	case models.OrderOutForDelivery:
		return "saiu para entrega"
	default:
		return "em andamento"
	}
}

// CannedReply answers a restaurant when the model is unavailable.
func CannedReply(restaurantMessage string) string {
	text := strings.ToLower(restaurantMessage)
	switch {
	case strings.Contains(text, "confirmado"):
		return "Ótimo, obrigado! Quanto tempo mais ou menos para chegar?"
	case strings.Contains(text, "tempo"):
		return "Perfeito, muito obrigado! Fico no aguardo."
	case strings.Contains(text, "valor"):
		return "Tudo certo, pode ser. Obrigado!"
	default:
		return "Beleza, obrigado!"
	}
}

// Truncate shortens s to at most max characters, cutting at the last word boundary.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	cut := string([]rune(s)[:max])
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}

func AnswerRelayed(restaurant models.Restaurant) string {
	return fmt.Sprintf("Repassei a sua resposta para o *%s*. Assim que eles responderem eu te aviso!", restaurant.Name)
}

func AnswerRelayFailed(restaurant models.Restaurant) string {
	return fmt.Sprintf("Não consegui repassar a sua resposta para o *%s* agora. Pode enviar de novo?", restaurant.Name)
}
