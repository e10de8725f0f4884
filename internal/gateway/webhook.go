package gateway

import (
	"encoding/json"
	"strings"

	"github.com/avvvet/deliverybuddy/internal/phone"
)

// InboundMessage is a text message received from a WhatsApp contact.
type InboundMessage struct {
	From string
	Text string
	ID   string
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		Message struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
}

// ParseWebhook extracts an inbound text message from a webhook payload. ok is false for
// malformed payloads, other event types, group chats, messages sent by this instance
// and messages without text.
func ParseWebhook(payload []byte) (InboundMessage, bool) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return InboundMessage{}, false
	}

	switch strings.ToLower(strings.ReplaceAll(event.Event, "_", ".")) {
	case "messages.upsert":
	default:
		return InboundMessage{}, false
	}

	if event.Data.Key.FromMe {
		return InboundMessage{}, false
	}

	text := event.Data.Message.Conversation
	if text == "" {
		text = event.Data.Message.ExtendedTextMessage.Text
	}
	text = strings.TrimSpace(text)

	jid := event.Data.Key.RemoteJid
	if strings.HasSuffix(jid, "@g.us") {
		return InboundMessage{}, false
	}
	if i := strings.Index(jid, "@"); i >= 0 {
		jid = jid[:i]
	}
	from := phone.Digits(jid)

	if text == "" || from == "" {
		return InboundMessage{}, false
	}

	return InboundMessage{
		From: from,
		Text: text,
		ID:   event.Data.Key.ID,
	}, true
}
