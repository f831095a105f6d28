package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

const (
	defaultQueueSize    = 256
	defaultSendTimeout  = 30 * time.Second
	defaultMaxAttempts  = 4
	defaultRetryBackoff = 5 * time.Second

	ResultSent    = "sent"
	ResultRetried = "retried"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// ErrQueueFull is returned when a notification cannot be queued.
var ErrQueueFull = errors.New("notify: queue full")

// ResultRecorder counts delivery results. telemetry.SecurityMetrics implements it.
type ResultRecorder interface {
	NotificationResult(provider, result string)
}

// DispatcherConfig paces deliveries to the provider.
type DispatcherConfig struct {
	// RatePerMinute of zero or less disables pacing.
	RatePerMinute float64
	Burst         int
	QueueSize     int
	SendTimeout   time.Duration
	// MaxAttempts bounds tries per notification. Retries stop once Stop is called.
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Dispatcher queues notifications and delivers them from one goroutine,
// paced by a token bucket so an attack cannot flood the operator's inbox.
// NotifyLockout never blocks the login request.
type Dispatcher struct {
	next        port.OperatorNotifier
	provider    string
	limiter     *rate.Limiter
	queue       chan domain.LockoutNotification
	sendTimeout time.Duration
	maxAttempts int
	backoff     time.Duration
	recorder    ResultRecorder
	logger      *zap.Logger

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewDispatcher wraps next. Call Start to begin delivering.
func NewDispatcher(next port.OperatorNotifier, provider string, cfg DispatcherConfig, recorder ResultRecorder, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(cfg.RatePerMinute / 60)
	}

	return &Dispatcher{
		next:        next,
		provider:    provider,
		limiter:     rate.NewLimiter(limit, cfg.Burst),
		queue:       make(chan domain.LockoutNotification, cfg.QueueSize),
		sendTimeout: cfg.SendTimeout,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		recorder:    recorder,
		logger:      logger,
	}
}

// NotifyLockout queues the notification.
func (d *Dispatcher) NotifyLockout(_ context.Context, notification domain.LockoutNotification) error {
	select {
	case d.queue <- notification:
		return nil
	default:
		d.record(ResultDropped)
		d.logger.Error("operator notification dropped, queue full",
			zap.String("provider", d.provider),
			zap.String("email", notification.MaskedEmail),
		)
		return ErrQueueFull
	}
}

// Start launches the delivery goroutine. Calling it twice is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if d.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done

	go d.run(ctx, done)
}

// Stop halts the goroutine after delivering whatever is still queued.
func (d *Dispatcher) Stop() {
	d.lifecycle.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case notification := <-d.queue:
			// Wait only fails once ctx is cancelled; deliver anyway.
			_ = d.limiter.Wait(ctx)
			d.deliver(ctx, notification, true)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case notification := <-d.queue:
			d.deliver(context.Background(), notification, false)
		default:
			return
		}
	}
}

// deliver tries the provider, retrying with doubling backoff until maxAttempts
// when retry is set. Cancelling ctx ends the retries.
func (d *Dispatcher) deliver(ctx context.Context, notification domain.LockoutNotification, retry bool) {
	backoff := d.backoff

	for attempt := 1; ; attempt++ {
		err := d.send(notification)
		if err == nil {
			d.record(ResultSent)
			d.logger.Info("operator notification sent",
				zap.String("provider", d.provider),
				zap.String("email", notification.MaskedEmail),
				zap.Int("attempt", attempt),
			)
			return
		}

		if !retry || attempt >= d.maxAttempts {
			d.fail(notification, attempt, err)
			return
		}

		d.record(ResultRetried)
		d.logger.Warn("operator notification failed, retrying",
			zap.String("provider", d.provider),
			zap.String("email", notification.MaskedEmail),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if !d.wait(ctx, backoff) {
			d.fail(notification, attempt, err)
			return
		}
		backoff *= 2
	}
}

func (d *Dispatcher) fail(notification domain.LockoutNotification, attempts int, err error) {
	d.record(ResultFailed)
	d.logger.Error("operator notification failed, clear with authctl unblock --email",
		zap.String("provider", d.provider),
		zap.String("email", notification.MaskedEmail),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
}

// wait sleeps for delay or until ctx is done; it reports whether the full wait elapsed.
func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (d *Dispatcher) send(notification domain.LockoutNotification) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	return d.next.NotifyLockout(ctx, notification)
}

func (d *Dispatcher) record(result string) {
	if d.recorder != nil {
		d.recorder.NotificationResult(d.provider, result)
	}
}

var _ port.OperatorNotifier = (*Dispatcher)(nil)
