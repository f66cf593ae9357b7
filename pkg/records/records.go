package records

// Package records defines the canonical frame record schema shared by the
// data extraction pipeline and the episode simulator. One FrameRecord is one
// line of a session's frames.jsonl.
//
// All coordinates are in canvas space (bottom-left origin, Y-up, normalized
// to [0,1]) and rounded to 6 decimals by whoever produces them. Z and Zoom
// are unbounded positive reals.

// Provenance of an ideal crop label.
const (
	SourceAuto    = "auto"    // produced by the live shot composer
	SourceManual  = "manual"  // hand-labeled
	SourceYouTube = "youtube" // extracted from reference footage
)

// Speaker is the detected person's summary in canvas coordinates.
type Speaker struct {
	X          float64    `json:"x"`          // bbox center X
	Y          float64    `json:"y"`          // bbox center Y
	Z          float64    `json:"z"`          // depth proxy = 1 / bbox height (0 if unavailable)
	BBox       [4]float64 `json:"bbox"`       // [origin_x, origin_y, width, height]
	Confidence float64    `json:"confidence"` // detector confidence, 0..1
}

// Keypoints are the framing-relevant pose landmarks in canvas coordinates.
type Keypoints struct {
	HeadX          float64 `json:"head_x"`
	HeadY          float64 `json:"head_y"`
	WaistX         float64 `json:"waist_x"`
	WaistY         float64 `json:"waist_y"`
	PoseConfidence float64 `json:"pose_confidence"`
}

// CropRect is a camera field of view within the canvas. Zoom = 1/H.
type CropRect struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
	Zoom float64 `json:"zoom"`
}

// IdealCrop is a ground-truth crop label plus its provenance.
type IdealCrop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	Zoom   float64 `json:"zoom"`
	Source string  `json:"source"` // SourceAuto, SourceManual or SourceYouTube
}

// Crop returns the ideal crop without its provenance tag.
func (c IdealCrop) Crop() CropRect {
	return CropRect{X: c.X, Y: c.Y, W: c.W, H: c.H, Zoom: c.Zoom}
}

// FrameRecord is one timestamped sample of a session.
// Speaker and Keypoints are nil on frames where no person was detected.
type FrameRecord struct {
	T             float64    `json:"t"`         // seconds since session start
	FrameIdx      int        `json:"frame_idx"` // ordinal within the session
	Speaker       *Speaker   `json:"speaker"`
	Keypoints     *Keypoints `json:"keypoints"`
	CurrentCrop   CropRect   `json:"current_crop"`
	IdealCrop     IdealCrop  `json:"ideal_crop"`
	Interpolating bool       `json:"interpolating"`
}

// HasPerson is true if this frame has a usable person detection.
func (f *FrameRecord) HasPerson() bool {
	return f.Speaker != nil
}
