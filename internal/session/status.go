package session

import (
	"time"

	"github.com/rbright/askit/internal/fsm"
)

// DefaultErrorClear is how long a surfaced error stays visible.
const DefaultErrorClear = 5 * time.Second

// ArtifactInfo summarizes the last finalized recording.
type ArtifactInfo struct {
	Size     int           `json:"size"`
	MIMEType string        `json:"mime_type"`
	Duration time.Duration `json:"duration"`
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	State       fsm.State     `json:"state"`
	Recording   bool          `json:"recording"`
	Artifact    *ArtifactInfo `json:"artifact,omitempty"`
	Error       string        `json:"error,omitempty"`
	UtteranceID string        `json:"utterance_id,omitempty"`
	Language    string        `json:"language,omitempty"`
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Status {
	s := c.status
	s.State = c.state
	s.Recording = c.state == fsm.StateRecording
	if s.Artifact != nil {
		a := *s.Artifact
		s.Artifact = &a
	}
	return s
}

// Subscribe returns a channel of status snapshots and a function that
// detaches it. Slow subscribers miss intermediate snapshots, never the
// newest one.
func (c *Controller) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	c.mu.Lock()
	id := c.nextSubscriber
	c.nextSubscriber++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once bool
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if once {
			return
		}
		once = true
		delete(c.subscribers, id)
		close(ch)
	}
}

// publishLocked delivers the current snapshot to every subscriber.
func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Controller) updateStatus(fn func(*Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.status)
	c.publishLocked()
}

// setError publishes message and schedules its removal.
func (c *Controller) setError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Error = message
	c.errorSeq++
	seq := c.errorSeq
	if c.errorTimer != nil {
		c.errorTimer.Stop()
	}
	c.errorTimer = time.AfterFunc(c.errorClear, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.errorSeq != seq {
			return
		}
		c.status.Error = ""
		c.publishLocked()
	})
	c.publishLocked()
}
