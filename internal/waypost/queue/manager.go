// Package queue implements per-category event buffering, batching and
// delivery with retry for the telemetry pipeline.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypost/netwatch"
	"github.com/waypost/waypost/internal/waypost/transport"
)

// Options configures a Manager.
type Options struct {
	// BatchSize is the maximum number of events per batch. A category queue
	// reaching this length triggers an immediate flush.
	BatchSize int
	// FlushInterval is the period of the unconditional background flush.
	FlushInterval time.Duration
	// MaxRetries caps delivery attempts per batch before it is dropped.
	MaxRetries int
	// MaxRetryBatches bounds each category's retry queue. When full, the
	// oldest batch is dropped to admit the newest.
	MaxRetryBatches int
}

// retryBatch tracks delivery attempts for a failed batch.
type retryBatch struct {
	batch    v1alpha1.EventBatch
	attempts int
}

// Manager owns the category queues and retry queues. All access to them goes
// through its methods; callers never block on network I/O.
type Manager struct {
	sender    transport.Sender
	network   netwatch.Monitor
	logger    *slog.Logger
	opts      Options
	sessionID string

	mu     sync.Mutex
	queues map[v1alpha1.Category][]v1alpha1.Event
	retry  map[v1alpha1.Category][]retryBatch
	// sendLocks serialize delivery per category so batches leave in the
	// order their events were enqueued.
	sendLocks map[v1alpha1.Category]*sync.Mutex
	observer  func(v1alpha1.EventBatch)
	closed    bool

	unsubscribe func()
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewManager creates a queue manager, starts its periodic flush loop, and
// subscribes to network transitions to drain retry queues on reconnect.
func NewManager(sender transport.Sender, network netwatch.Monitor, sessionID string, opts Options, logger *slog.Logger) *Manager {
	m := &Manager{
		sender:    sender,
		network:   network,
		logger:    logger,
		opts:      opts,
		sessionID: sessionID,
		queues:    make(map[v1alpha1.Category][]v1alpha1.Event),
		retry:     make(map[v1alpha1.Category][]retryBatch),
		sendLocks: make(map[v1alpha1.Category]*sync.Mutex),
		done:      make(chan struct{}),
	}

	for _, category := range v1alpha1.KnownCategories {
		m.queues[category] = nil
		m.sendLocks[category] = &sync.Mutex{}
	}

	m.unsubscribe = network.Subscribe(func(online bool) {
		if !online {
			return
		}
		if !m.addWorker() {
			return
		}
		go func() {
			defer m.wg.Done()
			m.drainRetries()
		}()
	})

	m.wg.Add(1)
	go m.flushLoop()

	return m
}

// SetObserver registers a callback invoked with every successfully delivered
// batch. Used by the debug live tail.
func (m *Manager) SetObserver(fn func(v1alpha1.EventBatch)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// Enqueue appends an event to its category queue, creating the queue lazily
// for unknown categories. Reaching the batch size triggers an asynchronous
// flush. Enqueue never fails and never blocks on the network.
func (m *Manager) Enqueue(category v1alpha1.Category, event v1alpha1.Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("event dropped after shutdown", "category", category)
		return
	}
	m.queues[category] = append(m.queues[category], event)
	full := len(m.queues[category]) >= m.opts.BatchSize
	if full {
		m.wg.Add(1)
	}
	m.mu.Unlock()

	if full {
		go func() {
			defer m.wg.Done()
			m.Flush(category, false)
		}()
	}
}

// Flush atomically removes up to BatchSize events from the category queue and
// delivers them. Offline, the batch moves straight to the retry queue with no
// transport call. A failed async send also moves the batch to the retry queue
// so newly enqueued events keep their order. Sync mode uses the beacon path
// and is reserved for shutdown.
func (m *Manager) Flush(category v1alpha1.Category, sync bool) {
	lock := m.sendLock(category)
	lock.Lock()
	defer lock.Unlock()

	// Retry batches always precede new batches of the same category.
	if m.network.IsOnline() {
		m.drainCategoryRetries(category, sync)
	}

	batch, ok := m.takeBatch(category)
	if !ok {
		return
	}

	if !m.network.IsOnline() {
		m.pushRetry(category, retryBatch{batch: batch})
		return
	}

	if m.retryDepth(category) > 0 {
		// Earlier batches are still stuck; sending this one would reorder
		// the category stream.
		m.pushRetry(category, retryBatch{batch: batch})
		return
	}

	if sync {
		m.sender.SendBeacon(batch)
		m.notifyObserver(batch)
		return
	}

	if err := m.sender.Send(context.Background(), batch); err != nil {
		m.logger.Warn("batch delivery failed",
			"category", category,
			"events", batch.Len(),
			"error", err,
		)
		m.pushRetry(category, retryBatch{batch: batch, attempts: 1})
		return
	}
	m.notifyObserver(batch)
}

// FlushAsync schedules an immediate asynchronous flush of one category. Used
// for high-priority events that must not wait for the batch to fill.
func (m *Manager) FlushAsync(category v1alpha1.Category) {
	if !m.addWorker() {
		return
	}
	go func() {
		defer m.wg.Done()
		m.Flush(category, false)
	}()
}

// FlushAll flushes every category sequentially. In sync mode each flush is a
// fire-and-forget beacon send, since the process may terminate before any
// in-flight request resolves.
func (m *Manager) FlushAll(sync bool) {
	for _, category := range m.categories() {
		m.Flush(category, sync)
	}
}

// OnHidden is invoked when the host signals the application moved to the
// background. It proactively flushes all queues asynchronously.
func (m *Manager) OnHidden() {
	if !m.addWorker() {
		return
	}
	go func() {
		defer m.wg.Done()
		m.FlushAll(false)
	}()
}

// addWorker registers a background task unless the manager is shut down.
func (m *Manager) addWorker() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.wg.Add(1)
	return true
}

// Shutdown cancels the periodic flush, unsubscribes from network transitions
// and performs a final best-effort synchronous flush of every queue.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	close(m.done)
	if m.unsubscribe != nil {
		m.unsubscribe()
	}

	m.FlushAll(true)
	m.wg.Wait()
}

// Depth reports the number of buffered events for a category.
func (m *Manager) Depth(category v1alpha1.Category) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[category])
}

// RetryDepth reports the number of retry batches held for a category.
func (m *Manager) RetryDepth(category v1alpha1.Category) int {
	return m.retryDepth(category)
}

// Depths returns a snapshot of queue and retry depths for every category.
func (m *Manager) Depths() map[v1alpha1.Category]Depths {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[v1alpha1.Category]Depths, len(m.queues))
	for category, events := range m.queues {
		d := Depths{Queued: len(events), RetryBatches: len(m.retry[category])}
		for _, rb := range m.retry[category] {
			d.RetryEvents += rb.batch.Len()
		}
		out[category] = d
	}
	return out
}

// Depths describes buffered work for one category.
type Depths struct {
	Queued       int `json:"queued"`
	RetryBatches int `json:"retryBatches"`
	RetryEvents  int `json:"retryEvents"`
}

func (m *Manager) flushLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.FlushAll(false)
		}
	}
}

// takeBatch removes up to BatchSize events from a category queue.
func (m *Manager) takeBatch(category v1alpha1.Category) (v1alpha1.EventBatch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := m.queues[category]
	if len(events) == 0 {
		return v1alpha1.EventBatch{}, false
	}

	n := m.opts.BatchSize
	if len(events) < n {
		n = len(events)
	}

	taken := make([]v1alpha1.Event, n)
	copy(taken, events[:n])
	m.queues[category] = events[n:]

	return v1alpha1.EventBatch{
		ID:       uuid.New(),
		Category: category,
		Events:   taken,
		Metadata: v1alpha1.BatchMetadata{
			Timestamp: time.Now().UTC(),
			SessionID: m.sessionID,
			BatchSize: n,
		},
	}, true
}

func (m *Manager) sendLock(category v1alpha1.Category) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.sendLocks[category]
	if !ok {
		lock = &sync.Mutex{}
		m.sendLocks[category] = lock
	}
	return lock
}

func (m *Manager) categories() []v1alpha1.Category {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]v1alpha1.Category, 0, len(m.queues))
	for category := range m.queues {
		out = append(out, category)
	}
	return out
}

func (m *Manager) retryDepth(category v1alpha1.Category) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.retry[category])
}

// pushRetry appends a batch to the category retry queue, dropping the oldest
// batch when the bound is reached.
func (m *Manager) pushRetry(category v1alpha1.Category, rb retryBatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.MaxRetryBatches > 0 && len(m.retry[category]) >= m.opts.MaxRetryBatches {
		dropped := m.retry[category][0]
		m.retry[category] = m.retry[category][1:]
		m.logger.Warn("retry queue full, dropping oldest batch",
			"category", category,
			"droppedEvents", dropped.batch.Len(),
		)
	}
	m.retry[category] = append(m.retry[category], rb)
}

// drainRetries attempts delivery of all retry queues, oldest batch first per
// category. A failure stops that category to preserve ordering; remaining
// categories continue.
func (m *Manager) drainRetries() {
	for _, category := range m.categories() {
		lock := m.sendLock(category)
		lock.Lock()
		if m.network.IsOnline() {
			m.drainCategoryRetries(category, false)
		}
		lock.Unlock()
	}
}

// drainCategoryRetries must be called with the category send lock held.
func (m *Manager) drainCategoryRetries(category v1alpha1.Category, sync bool) {
	for {
		m.mu.Lock()
		if len(m.retry[category]) == 0 {
			m.mu.Unlock()
			return
		}
		rb := m.retry[category][0]
		m.retry[category] = m.retry[category][1:]
		m.mu.Unlock()

		if sync {
			m.sender.SendBeacon(rb.batch)
			m.notifyObserver(rb.batch)
			continue
		}

		if err := m.sender.Send(context.Background(), rb.batch); err != nil {
			rb.attempts++
			if m.opts.MaxRetries > 0 && rb.attempts > m.opts.MaxRetries {
				m.logger.Warn("batch dropped after exhausting retries",
					"category", category,
					"events", rb.batch.Len(),
					"attempts", rb.attempts,
				)
				continue
			}
			// Put the batch back at the front and stop this category so
			// ordering is preserved.
			m.mu.Lock()
			m.retry[category] = append([]retryBatch{rb}, m.retry[category]...)
			m.mu.Unlock()
			m.logger.Debug("retry delivery failed, keeping batch",
				"category", category,
				"attempts", rb.attempts,
				"error", err,
			)
			return
		}
		m.notifyObserver(rb.batch)
	}
}

func (m *Manager) notifyObserver(batch v1alpha1.EventBatch) {
	m.mu.Lock()
	fn := m.observer
	m.mu.Unlock()
	if fn != nil {
		fn(batch)
	}
}
