package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avvvet/deliverybuddy/internal/directory"
	"github.com/avvvet/deliverybuddy/internal/gateway"
	"github.com/avvvet/deliverybuddy/internal/llm"
	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/memory"
	"github.com/avvvet/deliverybuddy/internal/metrics"
	"github.com/avvvet/deliverybuddy/internal/models"
	"github.com/avvvet/deliverybuddy/internal/phone"
	"github.com/avvvet/deliverybuddy/internal/prompts"
)

// Turn outcomes, used as metric labels.
const (
	outcomeQuestion       = "question"
	outcomeCandidates     = "candidates"
	outcomeNotFound       = "not_found"
	outcomeInvalidChoice  = "invalid_choice"
	outcomeDispatched     = "dispatched"
	outcomeDispatchFailed = "dispatch_failed"
	outcomePostOrder      = "post_order"
	outcomeRelayed        = "relayed"
	outcomeError          = "error"
)

var restaurantListing = regexp.MustCompile(`(?m)^\s*[1-3][.)]\s+\S`)

// ChatDeps wires the collaborators of the order state machine.
type ChatDeps struct {
	Store        *memory.Manager
	Extractor    OrderExtractor
	Searcher     RestaurantSearcher
	Provider     llm.Provider
	Sender       gateway.Sender
	Events       Publisher
	Metrics      *metrics.Collectors
	Locks        *KeyedMutex
	Clock        Clock
	Location     *time.Location
	DefaultState string
	Logger       logger.Logger
}

// ChatHandler runs the order state machine for user chat turns.
type ChatHandler struct {
	deps   ChatDeps
	logger logger.Logger
}

func NewChatHandler(deps ChatDeps) *ChatHandler {
	if deps.Events == nil {
		deps.Events = NoopPublisher{}
	}
	if deps.Locks == nil {
		deps.Locks = NewKeyedMutex()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	return &ChatHandler{
		deps: deps,
		logger: deps.Logger.With(map[string]interface{}{
			"component": "chat",
		}),
	}
}

// ProcessTurn handles one user message. The only error returned is ErrInvalidRequest;
// every other failure becomes a polite reply.
func (h *ChatHandler) ProcessTurn(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error) {
	if err := h.validateRequest(request); err != nil {
		return nil, err
	}

	start := h.deps.Clock.Now()
	unlock := h.deps.Locks.Lock(request.SessionID)
	defer unlock()

	log := h.logger.With(map[string]interface{}{
		"sessionId": request.SessionID,
	})

	session, err := h.deps.Store.GetOrCreateSession(ctx, request.SessionID)
	if err != nil {
		log.WithError(err).Error("failed to load session", nil)
		h.deps.Metrics.TurnHandled(outcomeError, "unknown", h.deps.Clock.Now().Sub(start))
		return h.reply(request, prompts.GenericErrorMessage), nil
	}
	stateBefore := session.State

	var message, outcome string
	switch {
	case session.InPostOrder():
		message, outcome = h.postOrder(ctx, session, request, log)
	case isSelection(request.Message) && session.LastPresentedCandidates != nil:
		message, outcome = h.selectRestaurant(ctx, session, request.Message, log)
	default:
		message, outcome = h.collect(ctx, session, request, log)
	}

	if err := h.deps.Store.SaveSession(ctx, session); err != nil {
		log.WithError(err).Error("failed to save session", nil)
		message, outcome = prompts.GenericErrorMessage, outcomeError
	}

	log.Info("chat turn processed", map[string]interface{}{
		"outcome":   outcome,
		"stateFrom": string(stateBefore),
		"stateTo":   string(session.State),
	})
	h.deps.Metrics.TurnHandled(outcome, string(stateBefore), h.deps.Clock.Now().Sub(start))

	return h.reply(request, message), nil
}

func (h *ChatHandler) validateRequest(request *models.ChatRequest) error {
	if request == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	if strings.TrimSpace(request.SessionID) == "" {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(request.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	return nil
}

func (h *ChatHandler) reply(request *models.ChatRequest, message string) *models.ChatResponse {
	return &models.ChatResponse{
		Message:   message,
		SessionID: request.SessionID,
	}
}

// collect recomputes the order and either lists restaurants or asks the next question.
func (h *ChatHandler) collect(ctx context.Context, session *models.Session, request *models.ChatRequest, log logger.Logger) (string, string) {
	order := h.deps.Extractor.Extract(userHistory(request), request.Message)
	session.ExtractedOrder = order

	if order.IsComplete() {
		candidates := h.search(ctx, order)
		h.deps.Metrics.Candidates(len(candidates))

		if len(candidates) == 0 {
			session.State = models.StateCollectingInfo
			session.LastPresentedCandidates = nil
			return prompts.NotFound(order), outcomeNotFound
		}

		session.State = models.StateRestaurantChoicePending
		session.LastPresentedCandidates = candidates
		return prompts.CandidateList(order, candidates), outcomeCandidates
	}

	session.State = models.StateCollectingInfo
	session.LastPresentedCandidates = nil

	now := h.deps.Clock.Now().In(h.deps.Location)
	prompt := prompts.BuildCollectingPrompt(order, now, request.Messages, request.Message)

	resp, err := h.deps.Provider.Complete(ctx, &llm.Request{Prompt: prompt})
	if err != nil {
		log.WithError(err).Warn("model unavailable, asking fixed question", nil)
		h.deps.Metrics.ExternalFailure("llm")
		return prompts.NextQuestion(order), outcomeQuestion
	}
	return resp.Content, outcomeQuestion
}

// selectRestaurant re-runs the search, dispatches the chosen candidate and moves to
// order_sent only when the gateway accepted the message.
func (h *ChatHandler) selectRestaurant(ctx context.Context, session *models.Session, message string, log logger.Logger) (string, string) {
	index := int(strings.TrimSpace(message)[0] - '1')
	order := session.ExtractedOrder

	candidates := h.search(ctx, order)
	if index >= len(candidates) {
		if len(candidates) > 0 {
			session.LastPresentedCandidates = candidates
		}
		return prompts.InvalidChoice(len(candidates)), outcomeInvalidChoice
	}
	session.LastPresentedCandidates = candidates
	restaurant := candidates[index]

	now := h.deps.Clock.Now()
	record := &models.DispatchedOrder{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		Order:      order,
		Restaurant: restaurant,
		Status:     models.OrderSent,
		CreatedAt:  now,
	}
	if err := h.deps.Store.SaveDispatch(ctx, record); err != nil {
		log.WithError(err).Error("failed to record dispatch", nil)
		return prompts.GenericErrorMessage, outcomeError
	}

	orderText := prompts.OrderMessage(order, restaurant)
	if err := h.deps.Sender.Send(ctx, restaurant.ContactNumber, orderText); err != nil {
		log.WithError(err).Warn("order message not delivered", map[string]interface{}{
			"restaurant": restaurant.Name,
			"number":     restaurant.ContactNumber,
		})
		if derr := h.deps.Store.DeleteDispatch(ctx, session.ID); derr != nil {
			log.WithError(derr).Error("failed to discard undelivered dispatch", nil)
		}
		h.deps.Metrics.Dispatched("failed")
		h.deps.Metrics.ExternalFailure("gateway")
		return prompts.DispatchFailed(restaurant, len(candidates)), outcomeDispatchFailed
	}

	session.SelectedRestaurant = &restaurant
	session.LastPresentedCandidates = nil
	session.State = models.StateOrderSent

	if err := h.deps.Store.AppendConversation(ctx, session.ID, models.ConversationEntry{
		Role:      models.SpeakerClient,
		Content:   orderText,
		Timestamp: now,
	}); err != nil {
		log.WithError(err).Warn("failed to log order message", nil)
	}

	h.publish(ctx, record, log)
	h.deps.Metrics.Dispatched("sent")

	log.Info("order dispatched", map[string]interface{}{
		"orderId":    record.ID,
		"restaurant": restaurant.Name,
		"verified":   restaurant.Verified,
	})
	return prompts.DispatchConfirmed(order, restaurant), outcomeDispatched
}

// postOrder answers after dispatch. A pending restaurant question gets the user's
// message relayed as the answer.
func (h *ChatHandler) postOrder(ctx context.Context, session *models.Session, request *models.ChatRequest, log logger.Logger) (string, string) {
	if session.State == models.StateOrderSent {
		session.State = models.StatePostOrder
	}

	record, err := h.deps.Store.GetDispatch(ctx, session.ID)
	if err != nil {
		record = nil
	}

	if record != nil && record.Status == models.OrderWaitingClientResponse {
		return h.relayAnswer(ctx, record, request.Message, log)
	}

	restaurant := models.Restaurant{}
	status := models.OrderSent
	switch {
	case record != nil:
		restaurant, status = record.Restaurant, record.Status
	case session.SelectedRestaurant != nil:
		restaurant = *session.SelectedRestaurant
	}

	prompt := prompts.BuildPostOrderPrompt(session.ExtractedOrder, restaurant, status, request.Messages, request.Message)
	resp, err := h.deps.Provider.Complete(ctx, &llm.Request{Prompt: prompt})
	if err != nil {
		log.WithError(err).Warn("model unavailable for post-order reply", nil)
		h.deps.Metrics.ExternalFailure("llm")
		return prompts.PostOrderFallback, outcomePostOrder
	}
	if restaurantListing.MatchString(resp.Content) {
		log.Warn("discarding post-order reply that lists options", nil)
		return prompts.PostOrderFallback, outcomePostOrder
	}
	return resp.Content, outcomePostOrder
}

func (h *ChatHandler) relayAnswer(ctx context.Context, record *models.DispatchedOrder, answer string, log logger.Logger) (string, string) {
	text := prompts.ClientAnswer(answer)
	if err := h.deps.Sender.Send(ctx, record.Restaurant.ContactNumber, text); err != nil {
		log.WithError(err).Warn("failed to relay client answer", nil)
		h.deps.Metrics.ExternalFailure("gateway")
		return prompts.AnswerRelayFailed(record.Restaurant), outcomeRelayed
	}

	if err := h.deps.Store.AppendConversation(ctx, record.SessionID, models.ConversationEntry{
		Role:      models.SpeakerClient,
		Content:   text,
		Timestamp: h.deps.Clock.Now(),
	}); err != nil {
		log.WithError(err).Warn("failed to log relayed answer", nil)
	}

	record.Status = models.OrderSent
	if err := h.deps.Store.SaveDispatch(ctx, record); err != nil {
		log.WithError(err).Error("failed to update dispatch status", nil)
	}
	h.publish(ctx, record, log)

	return prompts.AnswerRelayed(record.Restaurant), outcomeRelayed
}

func (h *ChatHandler) search(ctx context.Context, order models.ExtractedOrder) []models.Restaurant {
	return h.deps.Searcher.Search(ctx, directory.Query{
		FoodType: order.FoodType,
		City:     order.City,
		State:    phone.StateFor(order.City, h.deps.DefaultState),
	})
}

func (h *ChatHandler) publish(ctx context.Context, record *models.DispatchedOrder, log logger.Logger) {
	publishEvent(ctx, h.deps.Events, record, h.deps.Clock.Now(), log)
}

func publishEvent(ctx context.Context, events Publisher, record *models.DispatchedOrder, at time.Time, log logger.Logger) {
	err := events.Publish(ctx, models.OrderEvent{
		SessionID:  record.SessionID,
		OrderID:    record.ID,
		Status:     record.Status,
		Restaurant: record.Restaurant.Name,
		At:         at,
	})
	if err != nil {
		log.WithError(err).Warn("failed to publish order event", nil)
	}
}

// isSelection reports whether message is a bare 1, 2 or 3.
func isSelection(message string) bool {
	m := strings.TrimSpace(message)
	return len(m) == 1 && m[0] >= '1' && m[0] <= '3'
}

// userHistory returns the prior user messages. A trailing copy of the current message
// is dropped so it is not counted twice.
func userHistory(request *models.ChatRequest) []string {
	var out []string
	for _, m := range request.Messages {
		if m.Role == models.RoleUser {
			out = append(out, m.Content)
		}
	}
	if n := len(out); n > 0 && strings.TrimSpace(out[n-1]) == strings.TrimSpace(request.Message) {
		last := request.Messages[len(request.Messages)-1]
		if last.Role == models.RoleUser {
			out = out[:n-1]
		}
	}
	return out
}
