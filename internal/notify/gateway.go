package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agroflow/irrigation-advisor/internal/resilience"
)

// httpChannel sends messages through a JSON gateway. Both concrete channels
// share this shape; only endpoint, kind, and credentials differ. The circuit
// breaker shields the gateway during sustained outages while the dispatcher's
// retry policy handles transient failures.
type httpChannel struct {
	kind    ChannelKind
	client  *http.Client
	baseURL string
	apiKey  string
	circuit *gobreaker.CircuitBreaker
}

// NewWhatsAppChannel creates a channel against a WhatsApp business gateway.
func NewWhatsAppChannel(client *http.Client, baseURL, apiKey string) Channel {
	return newHTTPChannel(ChannelWhatsApp, client, baseURL, apiKey)
}

// NewSMSChannel creates a channel against an SMS gateway.
func NewSMSChannel(client *http.Client, baseURL, apiKey string) Channel {
	return newHTTPChannel(ChannelSMS, client, baseURL, apiKey)
}

func newHTTPChannel(kind ChannelKind, client *http.Client, baseURL, apiKey string) *httpChannel {
	return &httpChannel{
		kind:    kind,
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(kind),
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

var errGatewayRejected = errors.New("gateway rejected message")

func (c *httpChannel) Kind() ChannelKind {
	return c.kind
}

func (c *httpChannel) Send(ctx context.Context, destination, text string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("%s gateway not configured", c.kind)
	}

	body, err := json.Marshal(map[string]string{
		"to":   destination,
		"text": text,
	})
	if err != nil {
		return "", err
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			// fall through to the payload
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			// Throttling and gateway-side faults may clear on retry.
			return nil, fmt.Errorf("gateway unavailable: status %d", resp.StatusCode)
		default:
			// Any other 4xx means the message itself was refused; retrying
			// the same payload cannot succeed, so fail over instead.
			return nil, resilience.Permanent{Err: fmt.Errorf("%w: status %d", errGatewayRejected, resp.StatusCode)}
		}

		var payload struct {
			Delivered bool   `json:"delivered"`
			MessageID string `json:"providerMessageId"`
			Error     string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, err
		}
		if !payload.Delivered {
			return nil, resilience.Permanent{Err: fmt.Errorf("%w: %s", errGatewayRejected, payload.Error)}
		}
		return payload.MessageID, nil
	})
	if err != nil {
		return "", err
	}

	id, _ := result.(string)
	return id, nil
}
