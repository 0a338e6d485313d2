// Package notify delivers best-effort user notifications (verification mail,
// password resets, interest events) to an external sender.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oggyb/vivah/internal/config"
	"github.com/oggyb/vivah/internal/metrics"
)

// Notification kinds.
const (
	KindVerifyEmail      = "verify_email"
	KindPasswordReset    = "password_reset"
	KindInterestReceived = "interest_received"
	KindInterestAccepted = "interest_accepted"
)

// Notification is the payload handed to the mailer.
type Notification struct {
	Kind      string            `json:"kind"`
	UserID    string            `json:"user_id"`
	Email     string            `json:"email"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notifier sends one notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log. Used in development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"user_id", n.UserID,
		"email", n.Email,
		"subject", n.Subject,
		"data", n.Data,
	)
	return nil
}

// New builds the configured notifier. The returned close func releases the
// backend connection.
func New(cfg *config.Config, logger *slog.Logger) (Notifier, func(), error) {
	switch cfg.Notify.Driver {
	case "kafka":
		k, err := NewKafkaNotifier(cfg.Notify.Brokers, cfg.Notify.Topic)
		if err != nil {
			return nil, nil, err
		}
		return k, k.Close, nil
	case "log", "":
		return NewLogNotifier(logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported NOTIFY_DRIVER %q", cfg.Notify.Driver)
	}
}

// Dispatcher sends notifications in the background. A failed send is
// logged and counted; callers never see it.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{notifier: n, logger: logger, metrics: m, timeout: 5 * time.Second}
}

// Send queues n and returns immediately.
func (d *Dispatcher) Send(n Notification) {
	if d == nil || d.notifier == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Notify(ctx, n); err != nil {
			d.metrics.IncrementNotificationFailures()
			d.logger.Warn("notification failed", "kind", n.Kind, "user_id", n.UserID, "err", err)
		}
	}()
}

// Wait blocks until every queued send has finished. Used on shutdown and in tests.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}
