package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
)

// Writer streams frame records into a new session directory, and writes
// metadata.json when finalized. A Writer belongs to exactly one session.
type Writer struct {
	SessionID string
	Dir       string

	log    logs.Log
	file   *os.File
	nWrote int
	meta   Metadata
}

// WriterConfig captures the extraction settings recorded in metadata.json.
type WriterConfig struct {
	VideoTitle          string
	FPS                 int
	Width               int
	Height              int
	ConfidenceThreshold float64
	HighAccuracy        bool
}

// NewWriter creates the session directory and opens frames.jsonl.
// The session ID embeds a timestamp plus a short random suffix, so that
// two extractions in the same second cannot collide.
func NewWriter(logger logs.Log, baseDir string, cfg WriterConfig) (*Writer, error) {
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	sessionID := fmt.Sprintf("session_youtube_%v_%v", time.Now().Format("2006-01-02_15-04-05"), uuid.NewString()[:8])
	dir := filepath.Join(baseDir, sessionID)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, fmt.Errorf("Failed to create session dir %v: %w", dir, err)
	}

	f, err := os.Create(filepath.Join(dir, "frames.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("Failed to create frames file: %w", err)
	}

	return &Writer{
		SessionID: sessionID,
		Dir:       dir,
		log:       logger,
		file:      f,
		meta: Metadata{
			CameraName: cfg.VideoTitle,
			ComposerConfig: ComposerConfig{
				// No live composer runs during offline extraction
			},
			DetectorConfig: DetectorConfig{
				ConfidenceThreshold: cfg.ConfidenceThreshold,
				HighAccuracy:        cfg.HighAccuracy,
				MaxPersons:          1,
			},
			FPS:         fps,
			LabelSource: SourceYouTube,
			Resolution:  Resolution{Width: cfg.Width, Height: cfg.Height},
			SessionID:   sessionID,
			StartTime:   time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// WriteFrame appends one record as a line of JSONL.
func (w *Writer) WriteFrame(rec *records.FrameRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("Failed to write frame %v: %w", rec.FrameIdx, err)
	}
	w.nWrote++
	return nil
}

// Finalize closes the frames file and writes metadata.json.
func (w *Writer) Finalize(totalFrames int, durationSeconds float64) error {
	if err := w.file.Close(); err != nil {
		return err
	}

	endTime := time.Now().UTC().Format(time.RFC3339)
	duration := float64(int(durationSeconds*1000)) / 1000
	w.meta.EndTime = &endTime
	w.meta.DurationSeconds = &duration
	w.meta.TotalFrames = &totalFrames

	raw, err := json.MarshalIndent(&w.meta, "", "  ")
	if err != nil {
		return err
	}
	metaPath := filepath.Join(w.Dir, "metadata.json")
	if err := os.WriteFile(metaPath, raw, 0660); err != nil {
		return fmt.Errorf("Failed to write %v: %w", metaPath, err)
	}
	w.log.Infof("Session %v finalized: %v frames, %.1f seconds", w.SessionID, totalFrames, durationSeconds)
	return nil
}

// Close abandons the writer without finalizing (error recovery path).
func (w *Writer) Close() {
	w.file.Close()
}

// NumWritten is the number of frames written so far.
func (w *Writer) NumWritten() int {
	return w.nWrote
}
