package notify

import (
	"CocoStock/internal/apperr"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stats: счётчики доставки с момента старта.
type Stats struct {
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Dispatcher принимает уведомления в ограниченную очередь и доставляет их пулом воркеров.
// Enqueue никогда не блокирует вызывающего.
type Dispatcher struct {
	ch      Channel
	queue   chan Alert
	timeout time.Duration
	logger  *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func NewDispatcher(ch Channel, queueSize int, timeout time.Duration, logger *zap.SugaredLogger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		ch:      ch,
		queue:   make(chan Alert, queueSize),
		timeout: timeout,
		logger:  logger,
	}
}

// Start запускает воркеров, читающих очередь до Close.
func (d *Dispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	d.logger.Infow("notification dispatcher started", "channel", d.ch.Name(), "workers", workers)
}

func (d *Dispatcher) workerLoop(id int) {
	for a := range d.queue {
		if err := d.Notify(context.Background(), a); err != nil {
			d.logger.Debugw("worker: alert not delivered", "worker", id, "item_id", a.ItemID)
		}
	}
}

// Enqueue ставит уведомление в очередь. false: очередь заполнена или закрыта, уведомление отброшено.
func (d *Dispatcher) Enqueue(a Alert) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.queue <- a:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warnw("notification queue full, alert dropped", "item_id", a.ItemID, "channel", d.ch.Name())
		return false
	}
}

// Notify делает ровно одну попытку доставки, ограниченную таймаутом.
// Ошибка оборачивает apperr.ErrDeliveryFailed.
func (d *Dispatcher) Notify(ctx context.Context, a Alert) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.ch.Deliver(ctx, a); err != nil {
		d.failed.Add(1)
		d.logger.Errorw("low-stock notification failed",
			"item_id", a.ItemID, "channel", d.ch.Name(), "error", err)
		return fmt.Errorf("%w: %s: %w", apperr.ErrDeliveryFailed, d.ch.Name(), err)
	}
	d.delivered.Add(1)
	d.logger.Infow("low-stock notification delivered",
		"item_id", a.ItemID, "quantity", a.Quantity, "threshold", a.Threshold, "channel", d.ch.Name())
	return nil
}

// Close перестаёт принимать уведомления, дожидается доставки уже поставленных в очередь.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
