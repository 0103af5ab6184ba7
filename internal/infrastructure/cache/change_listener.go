package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/asakaida/contentkit/internal/storage"
	"github.com/lib/pq"
)

// Invalidator drops cached records
type Invalidator interface {
	// Invalidate drops one record by its "contenttype:id" reference
	Invalidate(ctx context.Context, ref string)

	// InvalidateAll drops every cached record
	InvalidateAll(ctx context.Context)
}

// ChangeListener keeps the entity cache consistent across instances.
// Every write publishes the references it touched with NOTIFY, the record itself
// and its related records. Each instance LISTENs on the same channel and evicts
// those records from its own cache. A "*" payload clears the whole cache.
type ChangeListener struct {
	mu          sync.Mutex
	invalidator Invalidator
	connStr     string
	channel     string
	listener    *pq.Listener
	stopCh      chan struct{}
	stopped     bool
	observe     func(ref string)
	lastEvent   time.Time
}

// NewChangeListener creates a new ChangeListener.
// connStr is the PostgreSQL connection string for LISTEN/NOTIFY.
func NewChangeListener(invalidator Invalidator, connStr, channel string) *ChangeListener {
	return &ChangeListener{
		invalidator: invalidator,
		connStr:     connStr,
		channel:     channel,
		stopCh:      make(chan struct{}),
	}
}

// OnChange registers a callback run after each handled notification.
// An empty ref means the whole cache was dropped.
func (l *ChangeListener) OnChange(fn func(ref string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observe = fn
}

// Start begins listening for change notifications
func (l *ChangeListener) Start(ctx context.Context) error {
	if l.channel == "" {
		return fmt.Errorf("notify channel is required")
	}

	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			// Log error but don't fail - the listener reconnects on its own
			log.Printf("ChangeListener listener error: %v", err)
		}
	}

	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, reportProblem)
	if err := listener.Listen(l.channel); err != nil {
		listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}

	l.mu.Lock()
	l.listener = listener
	l.mu.Unlock()

	go l.run(listener)
	log.Printf("Listening for record changes on channel %s", l.channel)
	return nil
}

// Stop stops listening and releases the connection
func (l *ChangeListener) Stop() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	close(l.stopCh)
	listener := l.listener
	l.mu.Unlock()

	if listener != nil {
		return listener.Close()
	}
	return nil
}

// LastEvent returns when the last notification was handled
func (l *ChangeListener) LastEvent() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastEvent
}

func (l *ChangeListener) run(listener *pq.Listener) {
	for {
		select {
		case <-l.stopCh:
			return
		case notification := <-listener.Notify:
			l.Handle(notification)
		case <-time.After(90 * time.Second):
			// Periodic ping to keep connection alive
			go func() {
				if err := listener.Ping(); err != nil {
					log.Printf("ChangeListener ping error: %v", err)
				}
			}()
		}
	}
}

// Handle applies one notification to the cache.
// A nil notification follows a reconnect; changes may have been missed so the whole cache is dropped.
func (l *ChangeListener) Handle(notification *pq.Notification) {
	ctx := context.Background()

	var refs []string
	all := notification == nil
	if !all {
		refs, all = storage.ParseChangePayload(notification.Extra)
		if !all && len(refs) == 0 {
			return
		}
	}

	if all {
		l.invalidator.InvalidateAll(ctx)
		refs = []string{""}
	} else {
		for _, ref := range refs {
			l.invalidator.Invalidate(ctx, ref)
		}
	}

	l.mu.Lock()
	l.lastEvent = time.Now()
	observe := l.observe
	l.mu.Unlock()

	if observe != nil {
		for _, ref := range refs {
			observe(ref)
		}
	}
}
