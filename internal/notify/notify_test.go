package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/config"
	"github.com/oggyb/vivah/internal/metrics"
	"github.com/oggyb/vivah/internal/notify"
)

type recorder struct {
	mu   sync.Mutex
	got  []notify.Notification
	fail bool
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("backend down")
	}
	r.got = append(r.got, n)
	return nil
}

func TestDispatcher_DeliversInBackground(t *testing.T) {
	rec := &recorder{}
	d := notify.NewDispatcher(rec, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), metrics.NewNop())

	d.Send(notify.Notification{Kind: notify.KindInterestReceived, UserID: "u2"})
	d.Wait()

	require.Len(t, rec.got, 1)
	assert.Equal(t, "u2", rec.got[0].UserID)
	assert.False(t, rec.got[0].CreatedAt.IsZero())
}

func TestDispatcher_FailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.NewNop()
	d := notify.NewDispatcher(&recorder{fail: true}, slog.New(slog.NewTextHandler(&buf, nil)), m)

	d.Send(notify.Notification{Kind: notify.KindVerifyEmail, UserID: "u1"})
	d.Wait()

	assert.Contains(t, buf.String(), "notification failed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFails))
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *notify.Dispatcher
	assert.NotPanics(t, func() {
		d.Send(notify.Notification{})
		d.Wait()
	})
}

func TestLogNotifierAndFactory(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := config.New()
	cfg.Notify.Driver = "log"
	n, closeFn, err := notify.New(cfg, logger)
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, n.Notify(context.Background(), notify.Notification{Kind: notify.KindPasswordReset, UserID: "u9"}))
	assert.Contains(t, buf.String(), "kind=password_reset")

	cfg.Notify.Driver = "pigeon"
	_, _, err = notify.New(cfg, logger)
	assert.Error(t, err)
}

func TestKafkaNotifier_Produce(t *testing.T) {
	brokers := os.Getenv("KAFKA_TEST_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_TEST_BROKERS not set")
	}
	k, err := notify.NewKafkaNotifier(strings.Split(brokers, ","), "vivah.notifications.test")
	require.NoError(t, err)
	defer k.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, k.Ping(ctx))
	require.NoError(t, k.Notify(ctx, notify.Notification{Kind: notify.KindInterestAccepted, UserID: "u1"}))
}
