package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/gateway"
	"github.com/avvvet/deliverybuddy/internal/llm"
	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/memory"
	"github.com/avvvet/deliverybuddy/internal/metrics"
	"github.com/avvvet/deliverybuddy/internal/models"
	"github.com/avvvet/deliverybuddy/internal/phone"
	"github.com/avvvet/deliverybuddy/internal/prompts"
)

// ReplyDeps wires the collaborators of the restaurant channel.
type ReplyDeps struct {
	Store           *memory.Manager
	Provider        llm.Provider
	Sender          gateway.Sender
	Events          Publisher
	Metrics         *metrics.Collectors
	Locks           *KeyedMutex
	Clock           Clock
	Dispatch        config.DispatchConfig
	DefaultAreaCode string
	Logger          logger.Logger
}

// ReplyHandler processes messages that restaurants send back on the gateway.
type ReplyHandler struct {
	deps   ReplyDeps
	logger logger.Logger
}

// NewReplyHandler shares Locks with the ChatHandler so both channels of a session are
// serialized together.
func NewReplyHandler(deps ReplyDeps) *ReplyHandler {
	if deps.Events == nil {
		deps.Events = NoopPublisher{}
	}
	if deps.Locks == nil {
		deps.Locks = NewKeyedMutex()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	return &ReplyHandler{
		deps: deps,
		logger: deps.Logger.With(map[string]interface{}{
			"component": "restaurant-reply",
		}),
	}
}

var classStatus = map[string]models.OrderStatus{
	ClassConfirmed:      models.OrderConfirmed,
	ClassPreparing:      models.OrderPreparing,
	ClassOutForDelivery: models.OrderOutForDelivery,
}

// HandleInbound matches a restaurant message to its dispatched order, updates the order
// status, answers the restaurant and notifies the client. Messages from unknown numbers
// are ignored.
func (h *ReplyHandler) HandleInbound(ctx context.Context, msg gateway.InboundMessage) (models.ReplyOutcome, error) {
	log := h.logger.With(map[string]interface{}{
		"from": msg.From,
	})

	found, err := h.deps.Store.FindDispatch(ctx, func(o *models.DispatchedOrder) bool {
		return phone.Equivalent(o.Restaurant.ContactNumber, msg.From)
	})
	if errors.Is(err, memory.ErrNotFound) {
		log.Info("ignoring message from unknown contact", nil)
		return models.ReplyOutcome{}, nil
	}
	if err != nil {
		return models.ReplyOutcome{}, fmt.Errorf("failed to match dispatch: %w", err)
	}

	outcome, notices, err := h.handleLocked(ctx, found.SessionID, msg, log)
	if err != nil {
		return outcome, err
	}

	outcome.Notified = h.notifyClient(ctx, notices, log)
	return outcome, nil
}

// clientNotices is the follow-up traffic to the client, sent after the session lock
// is released.
type clientNotices struct {
	number   string
	messages []string
}

func (h *ReplyHandler) handleLocked(ctx context.Context, sessionID string, msg gateway.InboundMessage, log logger.Logger) (models.ReplyOutcome, clientNotices, error) {
	unlock := h.deps.Locks.Lock(sessionID)
	defer unlock()

	record, err := h.deps.Store.GetDispatch(ctx, sessionID)
	if err != nil {
		return models.ReplyOutcome{}, clientNotices{}, fmt.Errorf("failed to reload dispatch: %w", err)
	}

	class := Classify(msg.Text)
	h.deps.Metrics.RestaurantReply(class)

	log = log.With(map[string]interface{}{
		"sessionId": sessionID,
		"orderId":   record.ID,
		"class":     class,
	})

	outcome := models.ReplyOutcome{
		Matched:   true,
		SessionID: sessionID,
		Class:     class,
	}

	restaurantEntry := models.ConversationEntry{
		Role:      models.SpeakerRestaurant,
		Content:   msg.Text,
		Timestamp: h.deps.Clock.Now(),
	}
	clientNumber := h.clientNumber(record.Order.Phone)

	if class == ClassNeedsClientInput {
		record.Status = models.OrderWaitingClientResponse
		if err := h.deps.Store.SaveDispatch(ctx, record); err != nil {
			return outcome, clientNotices{}, fmt.Errorf("failed to save dispatch: %w", err)
		}
		h.appendLog(ctx, sessionID, log, restaurantEntry)
		publishEvent(ctx, h.deps.Events, record, h.deps.Clock.Now(), log)

		outcome.Status = record.Status
		log.Info("restaurant asked the client a question", nil)
		return outcome, clientNotices{
			number:   clientNumber,
			messages: []string{prompts.ClientQuestion(record.Restaurant.Name, msg.Text)},
		}, nil
	}

	previous := record.Status
	if status, ok := classStatus[class]; ok {
		record.Status = status
	}
	if err := h.deps.Store.SaveDispatch(ctx, record); err != nil {
		return outcome, clientNotices{}, fmt.Errorf("failed to save dispatch: %w", err)
	}
	outcome.Status = record.Status
	if record.Status != previous {
		publishEvent(ctx, h.deps.Events, record, h.deps.Clock.Now(), log)
	}

	answer := h.draftAnswer(ctx, record, msg.Text, log)

	if err := h.deps.Clock.Sleep(ctx, randomDelay(h.deps.Dispatch.ReplyDelayMin, h.deps.Dispatch.ReplyDelayMax)); err != nil {
		return outcome, clientNotices{}, err
	}

	entries := []models.ConversationEntry{restaurantEntry}
	if err := h.deps.Sender.Send(ctx, record.Restaurant.ContactNumber, answer); err != nil {
		log.WithError(err).Warn("failed to answer restaurant", nil)
		h.deps.Metrics.ExternalFailure("gateway")
	} else {
		outcome.Replied = true
		entries = append(entries, models.ConversationEntry{
			Role:      models.SpeakerClient,
			Content:   answer,
			Timestamp: h.deps.Clock.Now(),
		})
	}
	h.appendLog(ctx, sessionID, log, entries...)

	log.Info("restaurant message handled", map[string]interface{}{
		"status":  string(record.Status),
		"replied": outcome.Replied,
	})

	var messages []string
	switch class {
	case ClassConfirmed:
		messages = append([]string{prompts.ConfirmationNotice(record.Restaurant)}, prompts.Reassurances(record.Restaurant)...)
	case ClassPreparing, ClassOutForDelivery:
		messages = []string{prompts.StatusUpdate(record.Status, record.Restaurant)}
	}
	return outcome, clientNotices{number: clientNumber, messages: messages}, nil
}

// draftAnswer asks the model for a short client-side reply, falling back to a canned one.
func (h *ReplyHandler) draftAnswer(ctx context.Context, record *models.DispatchedOrder, incoming string, log logger.Logger) string {
	history, err := h.deps.Store.Conversation(ctx, record.SessionID)
	if err != nil {
		log.WithError(err).Warn("failed to load restaurant log", nil)
		history = nil
	}

	prompt, err := prompts.BuildRestaurantReplyPrompt(record.Order, record.Restaurant.Name, history, incoming)
	if err != nil {
		log.WithError(err).Warn("failed to build reply prompt", nil)
		return prompts.CannedReply(incoming)
	}

	resp, err := h.deps.Provider.Complete(ctx, &llm.Request{
		Prompt:    prompt,
		MaxTokens: 120,
	})
	if err != nil {
		log.WithError(err).Warn("model unavailable, using canned reply", nil)
		h.deps.Metrics.ExternalFailure("llm")
		return prompts.CannedReply(incoming)
	}

	answer := prompts.Truncate(resp.Content, prompts.MaxRestaurantReply)
	if answer == "" {
		return prompts.CannedReply(incoming)
	}
	return answer
}

// notifyClient sends the queued messages in order. The first two go out back to back;
// each later one waits for the next reassurance delay, the last delay repeating when
// the list is short.
func (h *ReplyHandler) notifyClient(ctx context.Context, notices clientNotices, log logger.Logger) int {
	if len(notices.messages) == 0 {
		return 0
	}
	if notices.number == "" {
		log.Warn("client phone unusable, skipping notifications", nil)
		return 0
	}

	delays := h.deps.Dispatch.ReassuranceDelays
	sent := 0
	for i, text := range notices.messages {
		if i > 1 && len(delays) > 0 {
			d := delays[len(delays)-1]
			if i-2 < len(delays) {
				d = delays[i-2]
			}
			if err := h.deps.Clock.Sleep(ctx, d); err != nil {
				break
			}
		}
		if err := h.deps.Sender.Send(ctx, notices.number, text); err != nil {
			log.WithError(err).Warn("failed to notify client", map[string]interface{}{
				"index": i,
			})
			h.deps.Metrics.ExternalFailure("gateway")
			continue
		}
		sent++
	}
	return sent
}

func (h *ReplyHandler) clientNumber(raw string) string {
	number, ok := phone.Normalize(raw, h.deps.DefaultAreaCode)
	if !ok {
		return ""
	}
	return number
}

func (h *ReplyHandler) appendLog(ctx context.Context, sessionID string, log logger.Logger, entries ...models.ConversationEntry) {
	if err := h.deps.Store.AppendConversation(ctx, sessionID, entries...); err != nil {
		log.WithError(err).Warn("failed to append restaurant log", nil)
	}
}
