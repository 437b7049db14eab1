package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/agroflow/irrigation-advisor/internal/resilience"
)

// Recipient describes where and how a farmer wants messages.
type Recipient struct {
	Address string
	// ChannelOverride forces a specific channel when set.
	ChannelOverride ChannelKind
	Language        string
}

// Dispatcher walks the channel priority order, retrying each channel with
// backoff before failing over to the next. WhatsApp leads when configured
// and the recipient has no override.
type Dispatcher struct {
	channels map[ChannelKind]Channel
	retry    resilience.RetryPolicy
	log      *slog.Logger
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher over the given channels. A zero retry
// policy gets the contract default: 3 attempts at 1s/2s/4s.
func NewDispatcher(channels []Channel, retry resilience.RetryPolicy, log *slog.Logger) *Dispatcher {
	if retry.MaxAttempts == 0 {
		retry = resilience.RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: 1 * time.Second,
			Factor:          2,
		}
	}
	byKind := make(map[ChannelKind]Channel, len(channels))
	for _, ch := range channels {
		byKind[ch.Kind()] = ch
	}
	return &Dispatcher{
		channels: byKind,
		retry:    retry,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// order resolves the channel sequence for a recipient.
func (d *Dispatcher) order(r Recipient) []Channel {
	if r.ChannelOverride != "" {
		if ch, ok := d.channels[r.ChannelOverride]; ok {
			return []Channel{ch}
		}
	}
	var seq []Channel
	if ch, ok := d.channels[ChannelWhatsApp]; ok {
		seq = append(seq, ch)
	}
	if ch, ok := d.channels[ChannelSMS]; ok {
		seq = append(seq, ch)
	}
	return seq
}

// Dispatch delivers text to the recipient. The returned outcome reports the
// last channel tried; Delivered=false with all channels exhausted means the
// message is undelivered and should be queued for redelivery by the caller's
// persistence collaborator.
func (d *Dispatcher) Dispatch(ctx context.Context, r Recipient, text string) Outcome {
	seq := d.order(r)
	if len(seq) == 0 {
		return Outcome{
			Delivered: false,
			Error:     "no delivery channels configured",
			Timestamp: d.now(),
		}
	}

	var last Outcome
	for _, ch := range seq {
		state := StatePending
		attempts := 0
		var messageID string

		err := d.retry.Do(ctx, func() error {
			state = StateSending
			attempts++
			id, sendErr := ch.Send(ctx, r.Address, text)
			if sendErr != nil {
				d.log.Warn("channel send failed",
					"channel", ch.Kind(), "attempt", attempts, "error", sendErr)
				return sendErr
			}
			messageID = id
			return nil
		})

		if err == nil {
			state = StateDelivered
			d.log.Info("message delivered",
				"channel", ch.Kind(), "attempts", attempts, "state", state)
			return Outcome{
				Channel:   ch.Kind(),
				Attempts:  attempts,
				Delivered: true,
				MessageID: messageID,
				Timestamp: d.now(),
			}
		}

		state = StateFailed
		d.log.Warn("channel exhausted, failing over",
			"channel", ch.Kind(), "attempts", attempts, "state", state, "error", err)
		last = Outcome{
			Channel:   ch.Kind(),
			Attempts:  attempts,
			Delivered: false,
			Error:     err.Error(),
			Timestamp: d.now(),
		}
	}

	// All channels exhausted: undelivered, queued for later redelivery.
	d.log.Error("all channels exhausted", "state", StateUndelivered, "address", r.Address)
	return last
}
