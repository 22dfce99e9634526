package preview

import (
	"testing"
	"time"

	"github.com/Hankatuur/englishpod/internal/models"
)

func intPtr(v int) *int { return &v }

func TestWindow(t *testing.T) {
	tests := []struct {
		name         string
		isFree       bool
		isSubscribed bool
		mediaType    models.MediaType
		duration     *int
		want         *time.Duration
	}{
		{
			name:      "free video is unrestricted",
			isFree:    true,
			mediaType: models.MediaVideo,
			duration:  intPtr(30),
			want:      nil,
		},
		{
			name:         "subscribed locked video is unrestricted",
			isSubscribed: true,
			mediaType:    models.MediaVideo,
			duration:     intPtr(300),
			want:         nil,
		},
		{
			name:      "locked pdf has no timed preview",
			mediaType: models.MediaPDF,
			want:      nil,
		},
		{
			name:      "locked exercise has no timed preview",
			mediaType: models.MediaExercise,
			want:      nil,
		},
		{
			name:      "locked short video",
			mediaType: models.MediaVideo,
			duration:  intPtr(45),
			want:      durationPtr(2 * time.Second),
		},
		{
			name:      "exactly sixty seconds uses the short window",
			mediaType: models.MediaVideo,
			duration:  intPtr(60),
			want:      durationPtr(2 * time.Second),
		},
		{
			name:      "sixty-one seconds uses the default window",
			mediaType: models.MediaVideo,
			duration:  intPtr(61),
			want:      durationPtr(5 * time.Second),
		},
		{
			name:      "zero duration counts as short",
			mediaType: models.MediaVideo,
			duration:  intPtr(0),
			want:      durationPtr(2 * time.Second),
		},
		{
			name:      "unknown duration uses the default window",
			mediaType: models.MediaVideo,
			duration:  nil,
			want:      durationPtr(5 * time.Second),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Window(tt.isFree, tt.isSubscribed, tt.mediaType, tt.duration)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Window() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("Window() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestWindowIsPure(t *testing.T) {
	duration := intPtr(61)
	first := Window(false, false, models.MediaVideo, duration)
	second := Window(false, false, models.MediaVideo, duration)
	if *first != *second {
		t.Errorf("Window is not idempotent: %v then %v", *first, *second)
	}
}

func TestGateFiresOnce(t *testing.T) {
	window := 5 * time.Millisecond
	gate := Open(&window)
	defer gate.Cancel()

	select {
	case <-gate.Ended():
	case <-time.After(time.Second):
		t.Fatal("gate did not end within the window")
	}

	// The channel stays closed; a second receive must not block.
	select {
	case <-gate.Ended():
	default:
		t.Fatal("gate ended channel not terminal")
	}
}

func TestGateCancelBeforeWindow(t *testing.T) {
	window := 20 * time.Millisecond
	gate := Open(&window)
	gate.Cancel()

	select {
	case <-gate.Ended():
		t.Fatal("cancelled gate must not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGateNilWindowNeverEnds(t *testing.T) {
	gate := Open(nil)
	defer gate.Cancel()

	select {
	case <-gate.Ended():
		t.Fatal("unrestricted gate must never end")
	case <-time.After(20 * time.Millisecond):
	}
}
