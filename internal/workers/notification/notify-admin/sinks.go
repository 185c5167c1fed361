// internal/workers/notification/notify-admin/sinks.go
package notifyadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"pharmacy-agent/internal/common/aws"
	httpclient "pharmacy-agent/internal/common/http"
	"pharmacy-agent/internal/models"
)

// ==========================
// Webhook
// ==========================

type WebhookSink struct {
	client *httpclient.Client
}

func NewWebhookSink(client *httpclient.Client) *WebhookSink {
	return &WebhookSink{client: client}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, event models.AdminEvent) error {
	resp, err := s.client.Do(ctx, http.MethodPost, "", event)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned %d", resp.StatusCode())
	}
	return nil
}

// ==========================
// SNS
// ==========================

type TopicSink struct {
	publisher *aws.TopicPublisher
}

func NewTopicSink(publisher *aws.TopicPublisher) *TopicSink {
	return &TopicSink{publisher: publisher}
}

func (s *TopicSink) Name() string { return "sns" }

func (s *TopicSink) Send(ctx context.Context, event models.AdminEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.publisher.Publish(ctx, "Pharmacy event: "+event.EventType, string(body), map[string]string{
		"event_type": event.EventType,
		"source":     event.Source,
	})
	return err
}

// ==========================
// SES
// ==========================

type EmailSink struct {
	mailer  *aws.Mailer
	subject string
}

// NewEmailSink sends one email per event; subject is a format string taking
// the event type.
func NewEmailSink(mailer *aws.Mailer, subject string) *EmailSink {
	if subject == "" {
		subject = "%s"
	}
	return &EmailSink{mailer: mailer, subject: subject}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Send(ctx context.Context, event models.AdminEvent) error {
	_, err := s.mailer.Send(ctx, fmt.Sprintf(s.subject, event.EventType), emailBody(event))
	return err
}

func emailBody(event models.AdminEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\nID: %s\nSource: %s\nTime: %s\n",
		event.EventType, event.EventID, event.Source, event.Timestamp.Format(time.RFC3339))

	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, event.Data[k])
	}
	return b.String()
}

// ==========================
// NATS
// ==========================

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type NATSSink struct {
	conn    Publisher
	subject string
}

// NewNATSSink publishes each event on subject.<event_type>.
func NewNATSSink(conn Publisher, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Send(_ context.Context, event models.AdminEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.conn.Publish(s.subject+"."+event.EventType, body)
}
