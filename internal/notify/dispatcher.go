package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"postboard/internal/domain"
	"postboard/internal/metrics"
)

// Observer receives delivery outcomes; *metrics.Collector satisfies it.
type Observer interface {
	ObserveNotification(kind, outcome string)
	SetQueueDepth(n int)
}

// Dispatcher delivers notifications on a bounded pool of background workers.
type Dispatcher interface {
	Start(ctx context.Context) error
	Shutdown()
	// Dispatch queues n without blocking and reports whether it was accepted.
	Dispatch(n domain.Notification) bool
}

type Config struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Logger      *logrus.Logger
	Observer    Observer
}

type dispatcher struct {
	cfg    Config
	sender Sender

	queue  chan domain.Notification
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	running bool
	stopped bool
}

func NewDispatcher(cfg Config, sender Sender) Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &dispatcher{
		cfg:    cfg,
		sender: sender,
		queue:  make(chan domain.Notification, cfg.QueueSize),
	}
}

// Start launches the workers. They run on a context detached from ctx's
// cancellation so queued messages still drain during Shutdown.
func (d *dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.stopped {
		return errors.New("dispatcher already started")
	}

	d.ctx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.running = true
	d.cfg.Logger.Infof("notification dispatcher started, workers: %d, queue: %d", d.cfg.Workers, d.cfg.QueueSize)
	return nil
}

// Shutdown stops accepting work, waits for queued messages to be delivered
// and then releases the workers.
func (d *dispatcher) Shutdown() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
	d.cfg.Logger.Info("notification dispatcher stopped")
}

func (d *dispatcher) Dispatch(n domain.Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running {
		d.drop(n, "dispatcher not running")
		return false
	}
	select {
	case d.queue <- n:
		d.observeDepth()
		return true
	default:
		d.drop(n, "queue full")
		return false
	}
}

func (d *dispatcher) worker(id int) {
	defer d.wg.Done()
	for n := range d.queue {
		d.observeDepth()
		d.deliver(id, n)
	}
}

func (d *dispatcher) deliver(worker int, n domain.Notification) {
	log := d.cfg.Logger.WithFields(logrus.Fields{
		"worker":  worker,
		"kind":    n.Kind,
		"post_id": n.PostID,
	})

	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
	defer cancel()

	err := d.safeSend(ctx, BuildMessage(n))
	switch {
	case err == nil:
		log.Debug("push notification sent")
		d.observe(n, metrics.OutcomeSent)
	case errors.Is(err, ErrInvalidPushToken):
		log.Warn("skipping push notification: invalid token")
		d.observe(n, metrics.OutcomeSkipped)
	default:
		log.WithError(err).Warn("push notification failed")
		d.observe(n, metrics.OutcomeFailed)
	}
}

// safeSend keeps a panicking sender from taking down the worker.
func (d *dispatcher) safeSend(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("sender panicked")
			d.cfg.Logger.Errorf("push sender panic: %v", r)
		}
	}()
	return d.sender.Send(ctx, msg)
}

func (d *dispatcher) drop(n domain.Notification, reason string) {
	d.cfg.Logger.WithFields(logrus.Fields{
		"kind":    n.Kind,
		"post_id": n.PostID,
	}).Warnf("dropping push notification: %s", reason)
	d.observe(n, metrics.OutcomeDropped)
}

func (d *dispatcher) observe(n domain.Notification, outcome string) {
	if d.cfg.Observer != nil {
		d.cfg.Observer.ObserveNotification(string(n.Kind), outcome)
	}
}

func (d *dispatcher) observeDepth() {
	if d.cfg.Observer != nil {
		d.cfg.Observer.SetQueueDepth(len(d.queue))
	}
}
