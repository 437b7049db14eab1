package notify

import (
	"context"
	"time"
)

// ChannelKind identifies a delivery channel.
type ChannelKind string

const (
	ChannelWhatsApp ChannelKind = "whatsapp"
	ChannelSMS      ChannelKind = "sms"
)

// Channel abstracts one external message transport. Implementations return
// the provider's message id on success.
type Channel interface {
	Kind() ChannelKind
	Send(ctx context.Context, destination, text string) (providerMessageID string, err error)
}

// Outcome records how a delivery attempt sequence ended.
type Outcome struct {
	Channel   ChannelKind `json:"channel"`
	Attempts  int         `json:"attempts"`
	Delivered bool        `json:"delivered"`
	Error     string      `json:"error,omitempty"`
	MessageID string      `json:"providerMessageId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// State is the per-delivery state machine position.
type State string

const (
	StatePending     State = "pending"
	StateSending     State = "sending"
	StateDelivered   State = "delivered"
	StateFailed      State = "failed"
	StateUndelivered State = "undelivered"
)
