package workers

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/content"
	"github.com/Hankatuur/englishpod/internal/mediastore"
	"github.com/Hankatuur/englishpod/internal/models"
	"github.com/Hankatuur/englishpod/internal/tasks"
)

// HandleMediaProbe reads the uploaded video from the media store and records
// its duration on the content item. Errors are returned so Asynq retries.
func HandleMediaProbe(ctx context.Context, t *asynq.Task, db *gorm.DB, store *mediastore.Store, logger zerolog.Logger) error {
	payload, err := tasks.ParseMediaProbePayload(t)
	if err != nil {
		return err
	}

	svc := content.NewService(db, store, logger)
	item, err := svc.Get(ctx, payload.ContentID)
	if err != nil {
		return fmt.Errorf("failed to load content %s: %w", payload.ContentID, err)
	}

	if item.MediaType != models.MediaVideo {
		logger.Debug().
			Str("content_id", item.ID).
			Str("media_type", string(item.MediaType)).
			Msg("Skipping duration probe for non-video content")
		return nil
	}

	f, err := store.Open(item.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to open media for %s: %w", item.ID, err)
	}
	defer f.Close()

	seconds, err := ProbeMP4Duration(f)
	if err != nil {
		// An unreadable container is permanent; the preview policy falls back
		// to the unknown-duration window, so do not keep retrying.
		logger.Warn().Err(err).
			Str("content_id", item.ID).
			Str("storage_path", item.StoragePath).
			Msg("Could not determine video duration")
		return nil
	}

	if err := svc.SetDuration(ctx, item.ID, seconds); err != nil {
		return fmt.Errorf("failed to record duration for %s: %w", item.ID, err)
	}

	logger.Info().
		Str("content_id", item.ID).
		Int("duration_seconds", seconds).
		Msg("Video duration probed")
	return nil
}

// ProbeMP4Duration reads the movie header (moov/mvhd) of an MP4 container and
// returns the duration in whole seconds, rounded up.
func ProbeMP4Duration(r io.ReadSeeker) (int, error) {
	if _, err := findBox(r, 0, -1, "moov", "mvhd"); err != nil {
		return 0, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, fmt.Errorf("failed to read mvhd header: %w", err)
	}
	version := header[0]

	var timescale, duration uint64
	switch version {
	case 0:
		buf := make([]byte, 16) // creation(4) modification(4) timescale(4) duration(4)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, fmt.Errorf("failed to read mvhd v0 body: %w", err)
		}
		timescale = uint64(binary.BigEndian.Uint32(buf[8:12]))
		duration = uint64(binary.BigEndian.Uint32(buf[12:16]))
	case 1:
		buf := make([]byte, 28) // creation(8) modification(8) timescale(4) duration(8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, fmt.Errorf("failed to read mvhd v1 body: %w", err)
		}
		timescale = uint64(binary.BigEndian.Uint32(buf[16:20]))
		duration = binary.BigEndian.Uint64(buf[20:28])
	default:
		return 0, fmt.Errorf("unsupported mvhd version %d", version)
	}

	if timescale == 0 {
		return 0, fmt.Errorf("mvhd timescale is zero")
	}

	seconds := (duration + timescale - 1) / timescale
	return int(seconds), nil
}

// findBox walks the box tree from offset following the given path and leaves
// the reader positioned at the payload of the final box. limit is the number
// of bytes remaining in the enclosing box, or -1 at top level.
func findBox(r io.ReadSeeker, offset int64, limit int64, path ...string) (int64, error) {
	if len(path) == 0 {
		return offset, nil
	}
	target := path[0]

	pos := offset
	for limit < 0 || pos < offset+limit {
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return 0, fmt.Errorf("seek failed: %w", err)
		}

		header := make([]byte, 8)
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, fmt.Errorf("box %q not found", target)
			}
			return 0, fmt.Errorf("failed to read box header: %w", err)
		}

		size := int64(binary.BigEndian.Uint32(header[:4]))
		name := string(header[4:8])
		headerLen := int64(8)

		if size == 1 {
			large := make([]byte, 8)
			if _, err := io.ReadFull(r, large); err != nil {
				return 0, fmt.Errorf("failed to read large box size: %w", err)
			}
			size = int64(binary.BigEndian.Uint64(large))
			headerLen = 16
		}
		if size < headerLen {
			return 0, fmt.Errorf("malformed box %q with size %d", name, size)
		}

		if name == target {
			if len(path) == 1 {
				// Position at payload start
				if _, err := r.Seek(pos+headerLen, io.SeekStart); err != nil {
					return 0, fmt.Errorf("seek failed: %w", err)
				}
				return pos + headerLen, nil
			}
			return findBox(r, pos+headerLen, size-headerLen, path[1:]...)
		}

		pos += size
	}

	return 0, fmt.Errorf("box %q not found", target)
}
