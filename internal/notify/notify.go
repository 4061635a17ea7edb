// Package notify sends SMS notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/internal/logger"
)

var log = logger.ForComponent("notify")

var ErrNotConfigured = errors.New("twilio credentials are not fully configured")

type Notifier interface {
	// Send delivers body and returns the provider's message ID.
	Send(ctx context.Context, body string) (string, error)
}

// Describe renders the outcome of a Send as the sentence shown to users.
// SDK failures never escape as errors.
func Describe(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, ErrNotConfigured):
		return "Twilio credentials are not fully configured."
	default:
		return fmt.Sprintf("Error sending notification: %v", err)
	}
}

type Twilio struct {
	client *twilio.RestClient
	from   string
	to     string
}

// NewTwilio returns a notifier for the configured account. With incomplete
// credentials every Send fails with ErrNotConfigured.
func NewTwilio(creds config.Credentials) *Twilio {
	t := &Twilio{from: creds.TwilioFromNumber, to: creds.NotifyToNumber}
	if creds.TwilioAccountSID == "" || creds.TwilioAuthToken == "" || t.from == "" || t.to == "" {
		log.Warn("twilio credentials incomplete, notifications disabled")
		return t
	}
	t.client = twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: creds.TwilioAccountSID,
		Password: creds.TwilioAuthToken,
	})
	return t
}

func (t *Twilio) Configured() bool {
	return t.client != nil
}

func (t *Twilio) Send(ctx context.Context, body string) (string, error) {
	if t.client == nil {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(t.to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Error("sms send failed", "error", err)
		return "", fmt.Errorf("twilio: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Info("sms sent", "sid", sid)
	return sid, nil
}

// Recorder keeps every message in memory. Used when running without an SMS
// account and in tests.
type Recorder struct {
	Err error

	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Send(ctx context.Context, body string) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, body)
	return fmt.Sprintf("local-%d", len(r.messages)), nil
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

var (
	_ Notifier = (*Twilio)(nil)
	_ Notifier = (*Recorder)(nil)
)
