// Package playback tracks active play sessions and enforces the preview
// window on locked videos. A session is per-mount: replaying content opens a
// fresh session with a fresh gate, and nothing about consumed previews is
// persisted.
package playback

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/Hankatuur/englishpod/internal/preview"
)

const (
	// defaultEndedRetention keeps an elapsed session pollable long enough
	// for the player to observe preview_ended before the entry is dropped.
	defaultEndedRetention = time.Minute

	// defaultMaxAge bounds sessions whose client disconnected without a
	// stop. Longer than any plausible sitting of course material.
	defaultMaxAge = 4 * time.Hour
)

// Session is one active playback of a content item by a user
type Session struct {
	ID        string
	ContentID string
	UserID    string
	StartedAt time.Time
	Window    *time.Duration // nil = unrestricted

	gate    *preview.Gate
	stopped chan struct{}
	expiry  *time.Timer

	mu    sync.Mutex
	ended bool

	closeOnce sync.Once
}

// PreviewEnded reports whether the preview window has elapsed. Once true the
// session is terminal: the player must pause and must not auto-resume.
func (s *Session) PreviewEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Session) markEnded() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.gate.Cancel()
		s.expiry.Stop()
		close(s.stopped)
	})
}

// Tracker holds the active sessions. Entries never outlive their use: an
// elapsed preview lingers only for a short poll grace, and abandoned sessions
// expire after maxAge even without an explicit stop.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   zerolog.Logger

	endedRetention time.Duration
	maxAge         time.Duration
}

// NewTracker creates an empty tracker
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		sessions:       make(map[string]*Session),
		logger:         logger.With().Str("component", "playback_tracker").Logger(),
		endedRetention: defaultEndedRetention,
		maxAge:         defaultMaxAge,
	}
}

// Start registers a new play session with the given preview window. A nil
// window means unrestricted playback: the gate never fires and no watcher
// runs, only the max-age expiry covers the session.
func (t *Tracker) Start(contentID, userID string, window *time.Duration) *Session {
	session := &Session{
		ID:        ulid.Make().String(),
		ContentID: contentID,
		UserID:    userID,
		StartedAt: time.Now(),
		Window:    window,
		gate:      preview.Open(window),
		stopped:   make(chan struct{}),
	}
	session.expiry = time.AfterFunc(t.maxAge, func() {
		t.remove(session.ID)
	})

	t.mu.Lock()
	t.sessions[session.ID] = session
	t.mu.Unlock()

	if window != nil {
		go t.watch(session)
	}

	return session
}

// watch waits for the preview gate, marks the session ended, and reaps the
// entry once the poll grace has passed. A stop at any point exits early.
func (t *Tracker) watch(session *Session) {
	select {
	case <-session.gate.Ended():
		session.markEnded()
		t.logger.Debug().
			Str("session_id", session.ID).
			Str("content_id", session.ContentID).
			Msg("Preview window elapsed")
	case <-session.stopped:
		return
	}

	select {
	case <-time.After(t.endedRetention):
		t.remove(session.ID)
	case <-session.stopped:
	}
}

// Get returns an active session by id
func (t *Tracker) Get(id string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	session, ok := t.sessions[id]
	return session, ok
}

// Stop tears the session down: the gate is cancelled so it cannot act on a
// detached player. Stopping an unknown session is a no-op.
func (t *Tracker) Stop(id string) {
	t.remove(id)
}

func (t *Tracker) remove(id string) {
	t.mu.Lock()
	session, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	t.mu.Unlock()

	if ok {
		session.close()
	}
}

// Active returns the number of tracked sessions
func (t *Tracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
