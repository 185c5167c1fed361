// internal/workers/notification/notify-admin/handler.go
package notifyadmin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/common/metrics"
	"pharmacy-agent/internal/models"

	"github.com/google/uuid"
)

const (
	TaskType = "notify-admin"
)

var (
	ErrInvalidInput           = errors.New("INVALID_INPUT")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// Handler fans admin events out to every configured sink. Deliveries are
// attempted once; failures are logged and counted, never retried.
type Handler struct {
	config *Config
	sinks  []Sink
	logger logger.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewHandler(config *Config, sinks []Sink, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		sinks:  sinks,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
}

// Notify delivers the event in the background and returns immediately.
func (h *Handler) Notify(eventType string, data map[string]interface{}) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("Admin notification panicked", map[string]interface{}{
					"eventType": eventType,
					"panic":     fmt.Sprint(r),
				})
			}
		}()

		ctx := context.Background()
		if h.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
			defer cancel()
		}

		if _, err := h.execute(ctx, &Input{EventType: eventType, Data: data}); err != nil {
			h.logger.Warn("Admin notification not delivered", map[string]interface{}{
				"eventType": eventType,
				"error":     err.Error(),
			})
		}
	}()
}

// Wait blocks until every pending Notify has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.EventType == "" {
		return nil, ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	event := models.AdminEvent{
		EventID:   uuid.New().String(),
		EventType: input.EventType,
		Source:    models.EventSource,
		Timestamp: h.now().UTC(),
		Data:      input.Data,
	}

	output := &Output{EventID: event.EventID, Sinks: make(map[string]string, len(h.sinks))}
	if len(h.sinks) == 0 {
		output.Status = StatusDisabled
		h.logger.Debug("No notification sinks configured", map[string]interface{}{"eventType": event.EventType})
		return output, nil
	}

	failed := 0
	for _, sink := range h.sinks {
		status := StatusSent
		if err := sink.Send(ctx, event); err != nil {
			status = StatusFailed
			failed++
			h.logger.Error("Notification sink failed", map[string]interface{}{
				"sink":      sink.Name(),
				"eventId":   event.EventID,
				"eventType": event.EventType,
				"error":     err.Error(),
			})
		}
		output.Sinks[sink.Name()] = status
		metrics.NotificationsSent.WithLabelValues(sink.Name(), status).Inc()
	}

	switch {
	case failed == 0:
		output.Status = StatusSent
	case failed < len(h.sinks):
		output.Status = StatusPartial
	default:
		output.Status = StatusFailed
		metrics.StageFailed.WithLabelValues(TaskType, ErrNotificationSendFailed.Error()).Inc()
		return output, fmt.Errorf("%w: %s", ErrNotificationSendFailed, event.EventType)
	}

	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("Admin notified", map[string]interface{}{
		"eventId":   event.EventID,
		"eventType": event.EventType,
		"status":    output.Status,
	})
	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
