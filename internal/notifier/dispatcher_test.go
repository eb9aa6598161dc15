package notifier

import (
	"testing"
	"time"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyReachesOwnSessionsOnly(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	alice := d.Register("alice")
	bob := d.Register("bob")

	d.Notify(models.Notification{Type: models.NotificationOrderPaid, UserID: "alice", Message: "paid"})

	select {
	case n := <-alice.C:
		assert.Equal(t, "paid", n.Message)
		assert.False(t, n.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("alice never received the notification")
	}

	select {
	case n := <-bob.C:
		t.Fatalf("bob received a foreign notification: %+v", n)
	default:
	}
}

func TestNotifyBroadcastWithEmptyUser(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	a := d.Register("alice")
	b := d.Register("bob")

	d.Notify(models.Notification{Type: models.NotificationLowStock, Message: "low"})

	for _, s := range []*Session{a, b} {
		select {
		case n := <-s.C:
			assert.Equal(t, models.NotificationLowStock, n.Type)
		case <-time.After(time.Second):
			t.Fatal("broadcast did not reach every session")
		}
	}
}

func TestDeliverDropsOnFullBuffer(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	s := d.Register("alice")

	// One more than the buffer; the overflow must be dropped, not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < sessionBuffer+1; i++ {
			d.Deliver(models.Notification{UserID: "alice", Type: models.NotificationOrderCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delivery blocked on a full session buffer")
	}

	assert.Len(t, s.C, sessionBuffer)
}

func TestUnregisterClosesChannelOnce(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	s := d.Register("alice")
	require.Equal(t, 1, d.SessionCount())

	d.Unregister(s)
	d.Unregister(s) // second call is a no-op

	_, open := <-s.C
	assert.False(t, open)
	assert.Zero(t, d.SessionCount())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	idle := d.Register("alice")
	live := d.Register("bob")

	future := time.Now().Add(sessionMaxIdle + time.Minute)
	live.mu.Lock()
	live.lastSeen = future
	live.mu.Unlock()

	d.sweep(future)

	assert.Equal(t, 1, d.SessionCount())

	_, open := <-idle.C
	assert.False(t, open, "the swept session channel must be closed")

	select {
	case <-live.C:
		t.Fatal("the live session must survive the sweep")
	default:
	}
}

func TestTouchKeepsSessionAlive(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	s := d.Register("alice")
	s.Touch()

	d.sweep(time.Now())
	assert.Equal(t, 1, d.SessionCount())
}
