package models

import "time"

// ChatRequest is one turn sent by the browser frontend (or over NATS).
type ChatRequest struct {
	SessionID string        `json:"sessionId"`
	Message   string        `json:"message"`
	Messages  []ChatMessage `json:"messages"`
}

type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatResponse is the assistant answer for a turn.
type ChatResponse struct {
	Message      string  `json:"message"`
	SessionID    string  `json:"sessionId"`
	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionState is the order-flow position of a conversation.
type SessionState string

const (
	StateCollectingInfo          SessionState = "collecting_info"
	StateRestaurantChoicePending SessionState = "restaurant_choice_pending"
	StateOrderSent               SessionState = "order_sent"
	StatePostOrder               SessionState = "post_order"
)

// Session is the per-conversation state kept between turns.
type Session struct {
	ID                      string         `json:"id"`
	State                   SessionState   `json:"state"`
	ExtractedOrder          ExtractedOrder `json:"extracted_order"`
	SelectedRestaurant      *Restaurant    `json:"selected_restaurant,omitempty"`
	LastPresentedCandidates []Restaurant   `json:"last_presented_candidates,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// NewSession returns a session in its initial state.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateCollectingInfo,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// InPostOrder reports whether the order already left for a restaurant.
func (s *Session) InPostOrder() bool {
	return s.State == StateOrderSent || s.State == StatePostOrder
}

// Payment methods.
const (
	PaymentCard = "cartão"
	PaymentCash = "dinheiro"
	PaymentPix  = "pix"
)

// ExtractedOrder holds the fields inferred from the conversation. Empty string means absent.
type ExtractedOrder struct {
	ClientName    string `json:"client_name,omitempty"`
	Food          string `json:"food,omitempty"`
	FoodType      string `json:"food_type,omitempty"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Change        string `json:"change,omitempty"`
}

// IsComplete reports whether every required field is present. Change is only required
// for cash payments.
func (o ExtractedOrder) IsComplete() bool {
	if o.Food == "" || o.Address == "" || o.Phone == "" || o.PaymentMethod == "" || o.ClientName == "" {
		return false
	}
	return o.PaymentMethod != PaymentCash || o.Change != ""
}

// Restaurant is a directory search candidate.
type Restaurant struct {
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	ContactNumber  string  `json:"contact_number"`
	Rating         float64 `json:"rating"`
	EstimatedTime  string  `json:"estimated_time"`
	EstimatedPrice string  `json:"estimated_price"`
	Specialty      string  `json:"specialty"`
	Verified       bool    `json:"verified"`
}

// OrderStatus tracks a dispatched order as seen from the restaurant channel.
type OrderStatus string

const (
	OrderSent                  OrderStatus = "sent"
	OrderWaitingClientResponse OrderStatus = "waiting_client_response"
	OrderConfirmed             OrderStatus = "confirmed"
	OrderPreparing             OrderStatus = "preparing"
	OrderOutForDelivery        OrderStatus = "out_for_delivery"
)

// DispatchedOrder records an order message sent to a restaurant contact.
type DispatchedOrder struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Order      ExtractedOrder `json:"order"`
	Restaurant Restaurant     `json:"restaurant"`
	Status     OrderStatus    `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Conversation log roles on the restaurant channel.
const (
	SpeakerClient     = "client"
	SpeakerRestaurant = "restaurant"
)

// ConversationEntry is one message exchanged with a restaurant.
type ConversationEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderEvent is published whenever a dispatched order changes.
type OrderEvent struct {
	SessionID  string      `json:"session_id"`
	OrderID    string      `json:"order_id"`
	Status     OrderStatus `json:"status"`
	Restaurant string      `json:"restaurant"`
	At         time.Time   `json:"at"`
}

// Error codes
const (
	ErrorInvalidRequest = "INVALID_REQUEST"
	ErrorInternal       = "INTERNAL"
)

// ReplyOutcome summarizes how an inbound restaurant message was handled.
type ReplyOutcome struct {
	Matched   bool        `json:"matched"`
	SessionID string      `json:"session_id,omitempty"`
	Class     string      `json:"class,omitempty"`
	Status    OrderStatus `json:"status,omitempty"`
	Replied   bool        `json:"replied"`
	Notified  int         `json:"notified"`
}
