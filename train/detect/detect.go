package detect

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclopcam/logs"
)

// Package detect defines the boundary between the pose detection model and
// the canvas embedder. The model itself (MediaPipe, Vision, whatever) runs
// out of process; it hands us one Detection per frame, in source space:
// top-left origin, Y increases downward, all values normalized to [0,1].

// Detection is a single frame's person detection.
// Optional fields are nil when the detector could not produce them.
type Detection struct {
	HasPerson      bool        `json:"has_person"`
	BBox           *[4]float64 `json:"bbox,omitempty"`   // [x, y, w, h]
	Center         *[2]float64 `json:"center,omitempty"` // bbox center
	BBoxHeight     *float64    `json:"bbox_height,omitempty"`
	Confidence     *float64    `json:"confidence,omitempty"`
	Head           *[2]float64 `json:"head,omitempty"`  // mid-ears, fallback nose
	Waist          *[2]float64 `json:"waist,omitempty"` // mid-hips
	PoseConfidence *float64    `json:"pose_confidence,omitempty"`
}

// CenterOr returns the detection center, or (fx, fy) if absent.
func (d *Detection) CenterOr(fx, fy float64) (float64, float64) {
	if d.Center == nil {
		return fx, fy
	}
	return d.Center[0], d.Center[1]
}

// ReadFile loads a detections JSONL file (one Detection per line, in frame
// order). Unparseable lines are the detector's problem, not ours: we skip
// them and carry on.
func ReadFile(logger logs.Log, filename string) ([]Detection, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("Failed to open detections file %v: %w", filename, err)
	}
	defer f.Close()

	dets := []Detection{}
	nBad := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		d := Detection{}
		if err := json.Unmarshal(line, &d); err != nil {
			nBad++
			continue
		}
		dets = append(dets, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Failed to read detections file %v: %w", filename, err)
	}
	if nBad != 0 {
		logger.Warnf("Skipped %v unparseable lines in %v", nBad, filename)
	}
	return dets, nil
}
