package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/avvvet/deliverybuddy/internal/models"
)

// NotInformed marks a field the client has not given yet.
const NotInformed = "não informado"

// RestaurantContextTurns is how many conversation log entries seed a restaurant reply.
const RestaurantContextTurns = 6

const CollectingPrompt = `Você é o assistente de pedidos de um serviço de delivery por chat. Seu trabalho é coletar, de forma simpática e objetiva, os dados do pedido do cliente.

REGRAS IMPORTANTES:
1. Responda sempre em português do Brasil, com no máximo 3 frases curtas
2. Pergunte apenas pelos dados que ainda estão como "%[1]s"
3. Nunca repita uma pergunta que o cliente já respondeu
4. Peça um dado por vez, começando pelo que falta primeiro na lista
5. Se o pagamento for em dinheiro, pergunte se precisa de troco e para quanto
6. Não invente restaurantes, preços ou prazos

Saudação adequada ao horário: %[2]s

Dados do pedido até agora:
%[3]s
Conversa:
%[4]s
Escreva apenas a próxima mensagem do assistente.`

const PostOrderPrompt = `Você é o assistente de delivery que já enviou o pedido do cliente ao restaurante %[1]s. O pedido está em andamento.

REGRAS IMPORTANTES:
1. Responda em português do Brasil, com no máximo 3 frases curtas
2. NUNCA liste, sugira ou compare restaurantes; o pedido já foi enviado
3. NUNCA peça novamente os dados do pedido
4. Se o cliente perguntar sobre o prazo, use a estimativa %[2]s
5. Se não souber algo, diga que vai avisar assim que o restaurante responder

Situação atual do pedido: %[3]s

Resumo do pedido:
%[4]s
Conversa:
%[5]s
Escreva apenas a próxima mensagem do assistente.`

const RestaurantReplyPrompt = `Você é %[1]s, um cliente que fez um pedido de delivery pelo WhatsApp ao restaurante %[2]s. Responda à última mensagem do restaurante como o próprio cliente responderia.

REGRAS IMPORTANTES:
1. Escreva como uma pessoa comum no WhatsApp: curto, educado, informal
2. No máximo 2 frases e nunca mais de 200 caracteres
3. Não revele que é um assistente ou um sistema automático
4. Use apenas os dados do pedido abaixo; não invente novos itens

Seu pedido:
%[3]s
Conversa com o restaurante:
%[4]s
Restaurante: %[5]s
Escreva apenas a resposta do cliente.`

// Greeting picks the salutation for the local hour.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h >= 5 && h < 12:
		return "Bom dia"
	case h >= 12 && h < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}

// BuildCollectingPrompt asks the model for the next question while an order is incomplete.
func BuildCollectingPrompt(order models.ExtractedOrder, now time.Time, history []models.ChatMessage, current string) string {
	return fmt.Sprintf(CollectingPrompt,
		NotInformed,
		Greeting(now),
		buildOrderSection(order),
		buildConversationSection(history, current),
	)
}

// BuildPostOrderPrompt answers the client after dispatch without offering restaurants.
func BuildPostOrderPrompt(order models.ExtractedOrder, restaurant models.Restaurant, status models.OrderStatus, history []models.ChatMessage, current string) string {
	return fmt.Sprintf(PostOrderPrompt,
		restaurant.Name,
		orDefault(restaurant.EstimatedTime, "informada pelo restaurante"),
		StatusLabel(status),
		buildOrderSection(order),
		buildConversationSection(history, current),
	)
}

// BuildRestaurantReplyPrompt drafts the client's side of the restaurant chat from the
// most recent log entries.
func BuildRestaurantReplyPrompt(order models.ExtractedOrder, restaurantName string, log []models.ConversationEntry, incoming string) (string, error) {
	if len(log) > RestaurantContextTurns {
		log = log[len(log)-RestaurantContextTurns:]
	}

	messages := make([]llms.ChatMessage, 0, len(log))
	for _, entry := range log {
		switch entry.Role {
		case models.SpeakerRestaurant:
			messages = append(messages, llms.HumanChatMessage{Content: entry.Content})
		case models.SpeakerClient:
			messages = append(messages, llms.AIChatMessage{Content: entry.Content})
		}
	}

	transcript, err := llms.GetBufferString(messages, "Restaurante", "Cliente")
	if err != nil {
		return "", fmt.Errorf("format restaurant log: %w", err)
	}
	if transcript == "" {
		transcript = "(início da conversa)"
	}

	return fmt.Sprintf(RestaurantReplyPrompt,
		orDefault(order.ClientName, "o cliente"),
		restaurantName,
		buildOrderSection(order),
		transcript,
		incoming,
	), nil
}

func buildOrderSection(order models.ExtractedOrder) string {
	var builder strings.Builder

	fields := []struct {
		label string
		value string
	}{
		{"Nome", order.ClientName},
		{"Comida", order.Food},
		{"Endereço", order.Address},
		{"Cidade", order.City},
		{"Telefone", order.Phone},
		{"Pagamento", order.PaymentMethod},
	}
	for _, f := range fields {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", f.label, orDefault(f.value, NotInformed)))
	}
	if order.PaymentMethod == models.PaymentCash {
		builder.WriteString(fmt.Sprintf("- Troco para: %s\n", orDefault(order.Change, NotInformed)))
	}

	return builder.String()
}

func buildConversationSection(history []models.ChatMessage, currentMessage string) string {
	var builder strings.Builder

	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser:
			builder.WriteString(fmt.Sprintf("Cliente: %s\n", msg.Content))
		case models.RoleAssistant:
			builder.WriteString(fmt.Sprintf("Assistente: %s\n", msg.Content))
		}
	}

	builder.WriteString(fmt.Sprintf("Cliente: %s\n", currentMessage))

	return builder.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
