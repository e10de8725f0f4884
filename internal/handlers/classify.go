package handlers

import "github.com/avvvet/deliverybuddy/internal/rules"

// Restaurant message classes.
const (
	ClassNeedsClientInput = "needs_client_input"
	ClassConfirmed        = "confirmed"
	ClassPreparing        = "preparing"
	ClassOutForDelivery   = "out_for_delivery"
	ClassGeneral          = "general"
)

// ReplyRules classifies restaurant messages. Questions for the client win over every
// status phrase.
var ReplyRules = rules.Concat(
	rules.Group(ClassNeedsClientInput,
		"forma de pagamento", "qual o pagamento", "vai querer", "prefere", "preferência",
		"observação", "qual sabor", "qual o sabor", "borda", "tamanho",
		"precisa de troco", "troco para quanto", "bebida"),
	rules.Group(ClassConfirmed,
		"confirmado", "confirmo", "pedido aceito", "aceito", "anotado", "valor", "total",
		"fica pronto", "r$"),
	rules.Group(ClassPreparing,
		"preparando", "em preparo", "na cozinha", "no forno", "sendo preparado"),
	rules.Group(ClassOutForDelivery,
		"saiu para entrega", "saiu pra entrega", "a caminho", "motoboy", "entregador", "saindo"),
)

// Classify returns the class of a restaurant message, ClassGeneral when nothing matches.
func Classify(text string) string {
	if class, ok := ReplyRules.Match(text); ok {
		return class
	}
	return ClassGeneral
}
