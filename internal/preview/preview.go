// Package preview computes how long a locked video may play before playback
// is cut off, and owns the one-shot timer that fires when the window elapses.
//
// The policy is a pure function; scheduling and cancellation live on Gate so
// the hosting playback session controls the timer's lifecycle.
package preview

import (
	"sync"
	"time"

	"github.com/Hankatuur/englishpod/internal/models"
)

const (
	// shortVideoCutoff is the duration at or below which the short preview applies
	shortVideoCutoff = 60

	shortPreview   = 2 * time.Second
	defaultPreview = 5 * time.Second
)

// Window returns the allowed playback window for a content item, or nil when
// playback is unrestricted.
//
// Free and subscribed playback is never capped. Locked non-video content has
// no time-boxed preview under this policy; whether it opens at all is a
// binary gate decided elsewhere. Locked videos get a short window: 2s when
// the known duration is at most 60s (a zero duration counts), 5s when the
// duration is longer or unknown.
func Window(isFree, isSubscribed bool, mediaType models.MediaType, durationSeconds *int) *time.Duration {
	if isFree || isSubscribed {
		return nil
	}

	if mediaType != models.MediaVideo {
		return nil
	}

	if durationSeconds != nil && *durationSeconds <= shortVideoCutoff {
		w := shortPreview
		return &w
	}
	w := defaultPreview
	return &w
}

// Gate is a one-shot timer for a single play session. Ended fires at most
// once; after the hosting view is torn down Cancel stops the timer so it
// cannot act on a detached session. A Gate with a nil window never fires.
type Gate struct {
	timer *time.Timer
	ended chan struct{}
	once  sync.Once
}

// Open starts a gate for the given window. A nil window means unrestricted
// playback: the returned gate never ends and Cancel is a no-op.
func Open(window *time.Duration) *Gate {
	g := &Gate{ended: make(chan struct{})}
	if window == nil {
		return g
	}

	g.timer = time.AfterFunc(*window, func() {
		g.once.Do(func() { close(g.ended) })
	})
	return g
}

// Ended returns a channel that is closed when the preview window elapses.
// The signal is terminal for this play session; replaying the content opens
// a fresh gate.
func (g *Gate) Ended() <-chan struct{} {
	return g.ended
}

// Cancel stops the timer. Safe to call multiple times and after the gate has
// already ended.
func (g *Gate) Cancel() {
	if g.timer != nil {
		g.timer.Stop()
	}
}
