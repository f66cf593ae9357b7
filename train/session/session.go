package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
)

// Package session handles on-disk training sessions. Each session is a
// directory:
//
//	session_<label>_<timestamp>_<id>/
//	  frames.jsonl    one records.FrameRecord per line
//	  metadata.json   Metadata
//
// The live recorder and the offline extraction pipeline both produce this
// layout, so they load identically.

const DefaultFPS = 30

// Session provenance, derived from the metadata label_source.
const (
	SourceLive    = "live"
	SourceYouTube = "youtube"
	SourceUnknown = "unknown"
)

// Session is one recorded session, loaded into memory.
type Session struct {
	SessionID string
	Frames    []records.FrameRecord
	FPS       int
	Source    string
}

// Metadata is the session's metadata.json.
type Metadata struct {
	CameraName      string         `json:"camera_name"`
	ComposerConfig  ComposerConfig `json:"composer_config"`
	DetectorConfig  DetectorConfig `json:"detector_config"`
	DurationSeconds *float64       `json:"duration_seconds"`
	EndTime         *string        `json:"end_time"`
	FPS             int            `json:"fps"`
	LabelSource     string         `json:"label_source"`
	Resolution      Resolution     `json:"resolution"`
	SessionID       string         `json:"session_id"`
	StartTime       string         `json:"start_time"`
	TotalFrames     *int           `json:"total_frames"`
}

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ComposerConfig describes the shot composer that produced the labels.
// Zeroed for offline extraction, where no live composer ran.
type ComposerConfig struct {
	DeadzoneThreshold float64 `json:"deadzone_threshold"`
	HorizontalPadding float64 `json:"horizontal_padding"`
	SmoothingFactor   float64 `json:"smoothing_factor"`
	UseRuleOfThirds   bool    `json:"use_rule_of_thirds"`
}

// DetectorConfig describes the pose detector that produced the detections.
type DetectorConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	HighAccuracy        bool    `json:"high_accuracy"`
	MaxPersons          int     `json:"max_persons"`
}

// Scan walks dirs for session_*/frames.jsonl, loads them into memory, and
// returns the sessions sorted by ID. Sessions shorter than minFrames are
// skipped, as are directories and lines that don't parse: upstream writers
// are not trusted to be clean.
func Scan(logger logs.Log, dirs []string, minFrames int) []*Session {
	sessions := []*Session{}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			logger.Warnf("Failed to scan session dir %v: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "session_") {
				continue
			}
			sessionDir := filepath.Join(dir, entry.Name())
			frames, err := loadFrames(filepath.Join(sessionDir, "frames.jsonl"))
			if err != nil {
				continue
			}
			if len(frames) < minFrames {
				logger.Debugf("Skipping session %v: %v frames < minimum %v", entry.Name(), len(frames), minFrames)
				continue
			}

			fps, source := loadSessionMeta(filepath.Join(sessionDir, "metadata.json"))
			sessions = append(sessions, &Session{
				SessionID: entry.Name(),
				Frames:    frames,
				FPS:       fps,
				Source:    source,
			})
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].SessionID < sessions[j].SessionID
	})
	return sessions
}

func loadFrames(filename string) ([]records.FrameRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames := []records.FrameRecord{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec := records.FrameRecord{}
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		frames = append(frames, rec)
	}
	return frames, scanner.Err()
}

// loadSessionMeta reads fps and provenance from metadata.json, falling back
// to defaults if the file is absent or unreadable.
func loadSessionMeta(filename string) (fps int, source string) {
	fps = DefaultFPS
	source = SourceUnknown

	raw, err := os.ReadFile(filename)
	if err != nil {
		return
	}
	meta := Metadata{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return
	}
	if meta.FPS > 0 {
		fps = meta.FPS
	}
	switch {
	case strings.Contains(meta.LabelSource, "youtube"):
		source = SourceYouTube
	case meta.LabelSource == records.SourceAuto || meta.LabelSource == records.SourceManual:
		source = SourceLive
	}
	return
}
