package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/broker"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionBuffer = 16
	// Sessions that have not been touched by their transport within this
	// window are swept even if the disconnect callback was missed.
	sessionMaxIdle = 5 * time.Minute
	sweepInterval  = time.Minute
	publishTimeout = 5 * time.Second
)

// Session is one connected client of a user. The transport layer drains C
// and calls Touch on every read or ping.
type Session struct {
	UserID string
	C      chan models.Notification

	mu       sync.Mutex
	lastSeen time.Time
}

// Touch marks the session as live.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Dispatcher fans notifications out to connected sessions and mirrors them
// onto a Kafka topic for out-of-process consumers. Dispatch is strictly
// fire-and-forget: a full session buffer drops the message and a broker
// failure is only logged, neither ever reaches the caller.
type Dispatcher struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}

	producer *broker.Producer
	logger   *zap.Logger
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. producer may be nil when no broker is
// configured; local sessions still receive notifications.
func NewDispatcher(producer *broker.Producer) *Dispatcher {
	d := &Dispatcher{
		sessions: make(map[string]map[*Session]struct{}),
		producer: producer,
		logger:   util.GetLogger(),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.sweepLoop()
	return d
}

// Register attaches a new session for a user.
func (d *Dispatcher) Register(userID string) *Session {
	s := &Session{
		UserID:   userID,
		C:        make(chan models.Notification, sessionBuffer),
		lastSeen: time.Now(),
	}

	d.mu.Lock()
	if d.sessions[userID] == nil {
		d.sessions[userID] = make(map[*Session]struct{})
	}
	d.sessions[userID][s] = struct{}{}
	d.mu.Unlock()

	d.logger.Debug("Notification session registered", zap.String("user_id", userID))
	return s
}

// Unregister detaches a session; safe to call more than once.
func (d *Dispatcher) Unregister(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(s)
}

func (d *Dispatcher) removeLocked(s *Session) {
	set, ok := d.sessions[s.UserID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(d.sessions, s.UserID)
	}
	close(s.C)
}

// Notify hands a notification to the dispatch pipeline. With a broker
// configured it is published to the notification topic and fanned out to
// sessions by the notification worker on every instance; without one it is
// delivered straight to local sessions. Either way the caller never blocks
// and never sees a delivery error.
func (d *Dispatcher) Notify(n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	if d.producer == nil {
		d.Deliver(n)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := d.producer.Publish(ctx, n.UserID, n); err != nil {
			d.logger.Error("Failed to publish notification", zap.Error(err))
			// Broker trouble should not silence users on this instance.
			d.Deliver(n)
		}
	}()
}

// Deliver fans a notification out to every live local session of the
// target user, or to all sessions when UserID is empty.
func (d *Dispatcher) Deliver(n models.Notification) {
	d.mu.RLock()
	var targets []*Session
	if n.UserID == "" {
		for _, set := range d.sessions {
			for s := range set {
				targets = append(targets, s)
			}
		}
	} else {
		for s := range d.sessions[n.UserID] {
			targets = append(targets, s)
		}
	}
	d.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.C <- n:
		default:
			util.NotificationsDroppedTotal.Inc()
			d.logger.Warn("Notification dropped on backpressure",
				zap.String("user_id", s.UserID),
				zap.String("type", n.Type))
		}
	}
}

// SessionCount reports the number of registered sessions.
func (d *Dispatcher) SessionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, set := range d.sessions {
		n += len(set)
	}
	return n
}

// Close stops the sweep loop and waits for in-flight publishes.
func (d *Dispatcher) Close() {
	close(d.done)
	d.wg.Wait()
}

func (d *Dispatcher) sweepLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case now := <-ticker.C:
			d.sweep(now)
		}
	}
}

// sweep drops sessions whose transport stopped touching them, so a missed
// disconnect can never grow the registry without bound.
func (d *Dispatcher) sweep(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, set := range d.sessions {
		for s := range set {
			if s.idleSince(now) > sessionMaxIdle {
				d.removeLocked(s)
				d.logger.Info("Swept idle notification session",
					zap.String("user_id", s.UserID))
			}
		}
	}
}
