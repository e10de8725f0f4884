package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func completeOrder() ExtractedOrder {
	return ExtractedOrder{
		ClientName:    "João",
		Food:          "quero uma pizza",
		FoodType:      "pizza",
		Address:       "Rua A 123",
		City:          "Volta Redonda",
		Phone:         "24991234567",
		PaymentMethod: PaymentPix,
	}
}

func TestExtractedOrder_IsComplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *ExtractedOrder)
		want   bool
	}{
		{name: "all fields with pix", mutate: func(o *ExtractedOrder) {}, want: true},
		{name: "card needs no change", mutate: func(o *ExtractedOrder) { o.PaymentMethod = PaymentCard }, want: true},
		{name: "cash with change", mutate: func(o *ExtractedOrder) {
			o.PaymentMethod = PaymentCash
			o.Change = "50"
		}, want: true},
		{name: "cash without change", mutate: func(o *ExtractedOrder) { o.PaymentMethod = PaymentCash }, want: false},
		{name: "missing name", mutate: func(o *ExtractedOrder) { o.ClientName = "" }, want: false},
		{name: "missing food", mutate: func(o *ExtractedOrder) { o.Food = "" }, want: false},
		{name: "missing address", mutate: func(o *ExtractedOrder) { o.Address = "" }, want: false},
		{name: "missing phone", mutate: func(o *ExtractedOrder) { o.Phone = "" }, want: false},
		{name: "missing payment", mutate: func(o *ExtractedOrder) { o.PaymentMethod = "" }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := completeOrder()
			tt.mutate(&o)
			assert.Equal(t, tt.want, o.IsComplete())
		})
	}
}

func TestSession_InPostOrder(t *testing.T) {
	s := NewSession("abc", time.Now())
	assert.Equal(t, StateCollectingInfo, s.State)
	assert.False(t, s.InPostOrder())

	s.State = StateOrderSent
	assert.True(t, s.InPostOrder())

	s.State = StatePostOrder
	assert.True(t, s.InPostOrder())
}
