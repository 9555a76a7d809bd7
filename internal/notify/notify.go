package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Kind identifies the email template the notifier should send
type Kind string

const (
	KindBookingConfirmed Kind = "booking_confirmed"
	KindBookingCancelled Kind = "booking_cancelled"
	KindDatesChanged     Kind = "booking_dates_changed"
)

// Notifier delivers guest emails. Callers treat delivery as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, recipient string, payload map[string]interface{}) error
}

// LogNotifier writes notifications to the log instead of sending them
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, kind Kind, recipient string, payload map[string]interface{}) error {
	body, _ := json.Marshal(payload)
	log.Printf("[Notify] %s -> %s %s", kind, recipient, body)
	return nil
}

// WebhookNotifier posts notifications as JSON to a mail relay
type WebhookNotifier struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewWebhookNotifier(url, token string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

type webhookMessage struct {
	Kind      Kind                   `json:"kind"`
	Recipient string                 `json:"recipient"`
	Payload   map[string]interface{} `json:"payload"`
	SentAt    time.Time              `json:"sent_at"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, kind Kind, recipient string, payload map[string]interface{}) error {
	body, err := json.Marshal(webhookMessage{
		Kind:      kind,
		Recipient: recipient,
		Payload:   payload,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification webhook error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// AsyncNotifier sends on a background goroutine and only logs failures
type AsyncNotifier struct {
	Next    Notifier
	Timeout time.Duration
}

// Async wraps next so that Notify returns immediately
func Async(next Notifier) *AsyncNotifier {
	return &AsyncNotifier{Next: next, Timeout: 30 * time.Second}
}

func (n *AsyncNotifier) Notify(_ context.Context, kind Kind, recipient string, payload map[string]interface{}) error {
	go func() {
		// request context is gone by the time this runs
		ctx, cancel := context.WithTimeout(context.Background(), n.Timeout)
		defer cancel()
		if err := n.Next.Notify(ctx, kind, recipient, payload); err != nil {
			log.Printf("[Notify] Warning: %s to %s failed: %v", kind, recipient, err)
		}
	}()
	return nil
}
