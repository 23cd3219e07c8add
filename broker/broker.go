package broker

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hiveworks/dispatch/internal/metrics"
	"github.com/hiveworks/dispatch/types"
)

// DefaultCapacity is the queue capacity used when none is configured.
const DefaultCapacity = 256

// Handler receives messages delivered to a topic.
type Handler func(msg *types.Message)

// subscriptionCounter generates unique subscription IDs; an atomic counter
// avoids the collisions a time.Now().UnixNano() scheme has under concurrency.
var subscriptionCounter int64

// Subscription is the opaque handle returned by Subscribe. Subscribing the
// same handler twice creates two independent registrations (and duplicate
// delivery); callers avoid that by tracking handles.
type Subscription struct {
	id    int64
	topic string
	fn    Handler

	active atomic.Bool
	// invokeMu serializes handler invocation with Unsubscribe: once
	// Unsubscribe returns, no invocation of this handle is in progress and
	// none can start. The one exception is a handler unsubscribing its own
	// handle, where the in-progress invocation is the caller itself.
	invokeMu sync.Mutex
}

// Topic returns the topic this subscription is bound to.
func (s *Subscription) Topic() string { return s.topic }

type delivery struct {
	topic string
	msg   *types.Message
}

// Broker is the in-process pub/sub hub. One background worker per broker
// instance (not per topic) pulls from a bounded FIFO queue and invokes each
// topic's subscribers sequentially.
type Broker struct {
	mu      sync.RWMutex
	subs    map[string][]*Subscription
	queue   chan delivery
	running bool
	// drain closes when the current worker has fully drained its queue and
	// exited. Start waits on the previous worker's drain before launching a
	// new one, so two workers never overlap.
	drain chan struct{}

	capacity  int
	fatal     chan error
	workerGid atomic.Int64

	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a Broker.
type Option func(*Broker)

// WithCapacity sets the bounded queue capacity.
func WithCapacity(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithLogger sets the broker logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(b *Broker) { b.metrics = c }
}

// New creates a broker. The broker is inert until Start is called.
func New(opts ...Option) *Broker {
	b := &Broker{
		subs:     make(map[string][]*Subscription),
		capacity: DefaultCapacity,
		fatal:    make(chan error, 1),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("component", "broker"))
	return b
}

// Start launches the delivery worker with a fresh queue. Calling Start on a
// running broker is a no-op. If a previous StopContext gave up before its
// drain completed, Start blocks until that drain finishes rather than
// running two workers at once.
func (b *Broker) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	prev := b.drain
	b.mu.Unlock()
	if prev != nil {
		// Waiting outside the lock: the old worker's handlers may call
		// Publish, which needs the read lock.
		<-prev
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running { // lost a race with a concurrent Start
		return
	}
	queue := make(chan delivery, b.capacity)
	done := make(chan struct{})
	b.queue = queue
	b.drain = done
	b.running = true
	go func() {
		b.runWorker(queue)
		close(done)
	}()
	b.logger.Info("broker started", zap.Int("capacity", b.capacity))
}

// Stop drains the queue (delivering everything already enqueued), stops the
// worker, and refuses new publishes until Start is called again. Subscriber
// registrations survive a Stop/Start cycle.
func (b *Broker) Stop() {
	_ = b.StopContext(context.Background())
}

// StopContext is Stop with a bounded wait: new publishes are refused
// immediately, but if ctx expires before the drain completes the method
// returns ctx.Err() while the worker finishes draining in the background.
// A later Stop or StopContext call waits out that same drain; a later Start
// blocks until it finishes.
func (b *Broker) StopContext(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		drain := b.drain
		b.mu.Unlock()
		if drain == nil {
			return nil
		}
		select {
		case <-drain:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.running = false
	queue := b.queue
	drain := b.drain
	b.mu.Unlock()

	// Publishers check running under the lock before touching the queue, so
	// closing here cannot race a send.
	close(queue)

	select {
	case <-drain:
		b.metrics.SetQueueDepth(0)
		b.logger.Info("broker stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("broker stop returned before drain completed", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Publish enqueues msg for delivery to all current subscribers of topic.
// It never blocks on subscriber execution: a full queue returns a retryable
// BROKER_SATURATED error, and a stopped broker returns BROKER_STOPPED.
// A topic with zero subscribers is delivered to nobody, silently.
func (b *Broker) Publish(topic string, msg *types.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running {
		b.metrics.RecordDrop(topic, "stopped")
		return types.NewErrorf(types.ErrBrokerStopped, "broker is stopped, dropping publish to %q", topic)
	}
	select {
	case b.queue <- delivery{topic: topic, msg: msg}:
		b.metrics.RecordPublish(topic)
		b.metrics.SetQueueDepth(len(b.queue))
		return nil
	default:
		b.metrics.RecordDrop(topic, "saturated")
		return types.NewErrorf(types.ErrBrokerSaturated,
			"queue full (capacity %d), dropping publish to %q", b.capacity, topic).
			WithRetryable(true)
	}
}

// Subscribe registers fn for topic and returns the handle needed to
// unsubscribe. Insertion order determines invocation order for a delivery.
func (b *Broker) Subscribe(topic string, fn Handler) *Subscription {
	sub := &Subscription{
		id:    atomic.AddInt64(&subscriptionCounter, 1),
		topic: topic,
		fn:    fn,
	}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	b.logger.Debug("subscribed",
		zap.String("topic", topic),
		zap.Int64("subscription_id", sub.id))
	return sub
}

// Unsubscribe removes exactly one registration. It is a no-op if the handle
// was already removed, and is safe to call concurrently with an in-flight
// delivery to the same topic: when Unsubscribe returns, that delivery has
// either completed or will be skipped, never partially executed. It may also
// be called from inside a handler, including on the handler's own handle
// (a one-shot subscription).
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	if !sub.active.CompareAndSwap(true, false) {
		return
	}
	// Wait out any invocation that was already past the active check — unless
	// this call is coming from inside a handler. All handlers run on the
	// single delivery worker, so on the worker goroutine the only invocation
	// that can be in flight is the current call stack, and waiting for it
	// would deadlock the worker. The active-flag CAS above already guarantees
	// no further deliveries.
	if b.workerGid.Load() != goroutineID() {
		sub.invokeMu.Lock()
		sub.invokeMu.Unlock() //nolint:staticcheck // empty critical section is the point
	}

	b.mu.Lock()
	list := b.subs[sub.topic]
	for i, s := range list {
		if s == sub {
			b.subs[sub.topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}
	b.mu.Unlock()

	b.logger.Debug("unsubscribed",
		zap.String("topic", sub.topic),
		zap.Int64("subscription_id", sub.id))
}

// Fatal exposes broker-internal failures that should not happen in normal
// operation (a delivery worker crash). The worker is restarted automatically;
// the owning process can watch this channel to escalate.
func (b *Broker) Fatal() <-chan error {
	return b.fatal
}

// runWorker keeps a worker loop alive until the queue is closed and drained,
// restarting it if it ever crashes.
func (b *Broker) runWorker(queue chan delivery) {
	b.workerGid.Store(goroutineID())
	for {
		if b.workerLoop(queue) {
			return
		}
		b.metrics.RecordWorkerRestart()
		b.logger.Error("delivery worker restarted after crash")
	}
}

// workerLoop returns true when the queue has been closed and fully drained,
// false when it crashed and needs a restart.
func (b *Broker) workerLoop(queue chan delivery) (drained bool) {
	defer func() {
		if r := recover(); r != nil {
			drained = false
			err := types.NewErrorf(types.ErrSubscriberFailure, "delivery worker crashed: %v", r)
			b.logger.Error("delivery worker panic", zap.Any("recover", r))
			select {
			case b.fatal <- err:
			default:
			}
		}
	}()
	for d := range queue {
		b.metrics.SetQueueDepth(len(queue))
		b.dispatch(d)
	}
	return true
}

// dispatch invokes each current subscriber of the topic sequentially, in
// insertion order. The subscriber list lock is held only for the snapshot,
// never across an invocation, so a slow handler cannot stall Subscribe or
// Unsubscribe for other components.
func (b *Broker) dispatch(d delivery) {
	b.mu.RLock()
	src := b.subs[d.topic]
	subs := make([]*Subscription, len(src))
	copy(subs, src)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.invoke(sub, d)
	}
}

// invoke runs one handler with panic isolation: a subscriber that panics is
// logged and counted, and affects neither the remaining subscribers for this
// message nor the worker.
func (b *Broker) invoke(sub *Subscription, d delivery) {
	sub.invokeMu.Lock()
	defer sub.invokeMu.Unlock()
	if !sub.active.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.metrics.RecordSubscriberPanic(d.topic)
			b.logger.Error("subscriber panicked",
				zap.String("topic", d.topic),
				zap.Int64("subscription_id", sub.id),
				zap.Any("recover", r))
		}
	}()
	sub.fn(d.msg)
	b.metrics.RecordDelivery(d.topic)
}

// goroutineID extracts the current goroutine's id from the stack header
// ("goroutine 123 [running]:"). The runtime exposes no direct accessor;
// Unsubscribe needs the id to recognize calls made from inside a handler.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
