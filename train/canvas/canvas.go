package canvas

import (
	"errors"
	"math/rand"

	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/geom"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/detect"
)

// Package canvas embeds per-frame detections into a persistent virtual
// "wide shot" canvas (normalized 1x1). The detector sees only the framed
// shot, so we pretend that shot is a crop within a larger canvas: zoom is
// chosen once per video and locked, and the crop pursues the speaker so
// that trajectories stay smooth across frames.
//
// Internally all positions are kept in source space (top-left, Y-down);
// the Y-flip to canvas space (bottom-left, Y-up) happens at the output
// boundary, together with clamping and 6-decimal rounding.

// ErrNoPerson is returned when canvas initialization is attempted on a
// frame without a person. The canvas cannot be anchored without one.
var ErrNoPerson = errors.New("cannot initialize canvas: no person in detection")

// fallbackBBoxHeight stands in for a detection that has a person but no
// usable bbox height.
const fallbackBBoxHeight = 0.3

// Target canvas occupancy of the speaker's bbox height: in a real wide
// shot the speaker fills roughly 12-22% of the frame.
const (
	minTargetOccupancy = 0.12
	maxTargetOccupancy = 0.22
)

// Anchor range: where in the wide shot the speaker initially sits.
const (
	minAnchorX = 0.35
	maxAnchorX = 0.65
	minAnchorY = 0.30
	maxAnchorY = 0.55
)

// Options are the per-video embedding parameters.
type Options struct {
	ZoomMin     float64
	ZoomMax     float64
	AspectRatio float64
}

func DefaultOptions() Options {
	return Options{
		ZoomMin:     1.5,
		ZoomMax:     3.0,
		AspectRatio: 16.0 / 9.0,
	}
}

// State is the persistent canvas state for a single video.
// Once initialized, Zoom/CropW/CropH never change for the remainder of
// the video; only the crop origin moves. One video owns one State.
type State struct {
	Zoom          float64 // locked virtual zoom level
	CropW         float64 // crop size implied by Zoom and the aspect ratio
	CropH         float64
	CanvasAnchorX float64 // canvas position of the first detected speaker (source space)
	CanvasAnchorY float64
	FirstFrameSX  float64 // that speaker's source-space center
	FirstFrameSY  float64
	canonical     bool
}

// Canonical is false for the placeholder state produced before any person
// has been seen. A non-canonical state is discarded, not promoted, when a
// person finally appears.
func (s *State) Canonical() bool {
	return s.canonical
}

// Embedding is the result of embedding one frame into the canvas.
// All coordinates are in canvas space.
type Embedding struct {
	Speaker   *records.Speaker
	Keypoints *records.Keypoints
	Crop      records.CropRect
	IdealCrop records.IdealCrop
	State     *State // state to carry into the next frame
}

// Initialize locks in the canvas for a video, from its first frame with a
// detected person. Zoom is chosen so the speaker occupies a wide-shot
// share of the canvas; the anchor fixes where in the canvas the speaker
// initially sits. All randomness comes from rng.
func Initialize(det *detect.Detection, opts Options, rng *rand.Rand) (*State, error) {
	if !det.HasPerson {
		return nil, ErrNoPerson
	}

	bh := fallbackBBoxHeight
	if det.BBoxHeight != nil && *det.BBoxHeight > 0 {
		bh = *det.BBoxHeight
	}

	occupancy := uniform(rng, minTargetOccupancy, maxTargetOccupancy)
	zoom := geom.Clamp(bh/occupancy, opts.ZoomMin, opts.ZoomMax)
	cropW, cropH, zoom := geom.SizeForZoom(zoom, opts.AspectRatio)

	sx, sy := det.CenterOr(0.5, 0.5)

	return &State{
		Zoom:          zoom,
		CropW:         cropW,
		CropH:         cropH,
		CanvasAnchorX: uniform(rng, minAnchorX, maxAnchorX),
		CanvasAnchorY: uniform(rng, minAnchorY, maxAnchorY),
		FirstFrameSX:  sx,
		FirstFrameSY:  sy,
		canonical:     true,
	}, nil
}

// Embed maps one frame's detection into the canvas.
// state is nil on the first frame; the returned Embedding.State must be
// passed back on the next frame of the same video, and discarded at video
// boundaries.
func Embed(det *detect.Detection, state *State, opts Options, rng *rand.Rand) (Embedding, error) {
	// A placeholder state never becomes canonical: the canvas is locked in
	// fresh the moment a person is first seen.
	if (state == nil || !state.canonical) && det.HasPerson {
		s, err := Initialize(det, opts, rng)
		if err != nil {
			return Embedding{}, err
		}
		state = s
	}

	if state == nil {
		return defaultEmbedding(opts), nil
	}

	// Crop origin in source space
	cropX, cropY := cropPosition(det, state)

	var speaker *records.Speaker
	if det.HasPerson && det.BBox != nil {
		speaker = buildSpeaker(det, state, cropX, cropY)
	}

	var keypoints *records.Keypoints
	if det.HasPerson && det.Head != nil && det.Waist != nil {
		keypoints = buildKeypoints(det, state, cropX, cropY)
	}

	crop := records.CropRect{
		X:    geom.Round6(geom.Clamp01(cropX)),
		Y:    geom.Round6(geom.Clamp01(geom.FlipY(cropY + state.CropH))),
		W:    geom.Round6(state.CropW),
		H:    geom.Round6(state.CropH),
		Zoom: geom.Round6(geom.HeightToZoom(state.CropH)),
	}

	return Embedding{
		Speaker:   speaker,
		Keypoints: keypoints,
		Crop:      crop,
		IdealCrop: idealFromCrop(crop),
		State:     state,
	}, nil
}

// cropPosition computes the crop origin in source space. The crop tracks
// the speaker's displacement since the anchor frame, scaled by crop size,
// so the speaker holds the same relative position within the crop that
// they hold within the detected frame.
// With no person this frame, the crop sits centered in the canvas.
func cropPosition(det *detect.Detection, state *State) (float64, float64) {
	if !det.HasPerson || det.Center == nil {
		return (1.0 - state.CropW) / 2, (1.0 - state.CropH) / 2
	}

	sx, sy := det.Center[0], det.Center[1]

	canvasSpeakerX := state.CanvasAnchorX + (sx-state.FirstFrameSX)*state.CropW
	canvasSpeakerY := state.CanvasAnchorY + (sy-state.FirstFrameSY)*state.CropH

	// Solve cropX + sx*cropW = canvasSpeakerX for the origin
	cropX := geom.Clamp(canvasSpeakerX-sx*state.CropW, 0, 1.0-state.CropW)
	cropY := geom.Clamp(canvasSpeakerY-sy*state.CropH, 0, 1.0-state.CropH)
	return cropX, cropY
}

func buildSpeaker(det *detect.Detection, state *State, cropX, cropY float64) *records.Speaker {
	bx, by, bw, bh := det.BBox[0], det.BBox[1], det.BBox[2], det.BBox[3]

	// Frame-local -> canvas, still in source space
	canvasBX := cropX + bx*state.CropW
	canvasBY := cropY + by*state.CropH
	canvasBW := bw * state.CropW
	canvasBH := bh * state.CropH

	cx := canvasBX + canvasBW/2
	cy := canvasBY + canvasBH/2

	z := 0.0
	if canvasBH > 0.01 {
		z = 1.0 / canvasBH
	}

	confidence := 0.0
	if det.Confidence != nil {
		confidence = *det.Confidence
	}

	return &records.Speaker{
		X: geom.Round6(geom.Clamp01(cx)),
		Y: geom.Round6(geom.Clamp01(geom.FlipY(cy))),
		Z: geom.Round6(z),
		BBox: [4]float64{
			geom.Round6(geom.Clamp01(canvasBX)),
			geom.Round6(geom.Clamp01(geom.FlipY(canvasBY + canvasBH))),
			geom.Round6(canvasBW),
			geom.Round6(canvasBH),
		},
		Confidence: geom.Round6(confidence),
	}
}

func buildKeypoints(det *detect.Detection, state *State, cropX, cropY float64) *records.Keypoints {
	hx := cropX + det.Head[0]*state.CropW
	hy := cropY + det.Head[1]*state.CropH
	wx := cropX + det.Waist[0]*state.CropW
	wy := cropY + det.Waist[1]*state.CropH

	poseConf := 0.0
	if det.PoseConfidence != nil {
		poseConf = *det.PoseConfidence
	}

	return &records.Keypoints{
		HeadX:          geom.Round6(geom.Clamp01(hx)),
		HeadY:          geom.Round6(geom.Clamp01(geom.FlipY(hy))),
		WaistX:         geom.Round6(geom.Clamp01(wx)),
		WaistY:         geom.Round6(geom.Clamp01(geom.FlipY(wy))),
		PoseConfidence: geom.Round6(poseConf),
	}
}

// defaultEmbedding is the path for frames before any person has been seen:
// a centered crop at the midpoint of the zoom range, no speaker output, and
// a placeholder state that is not canonical.
func defaultEmbedding(opts Options) Embedding {
	midZoom := (opts.ZoomMin + opts.ZoomMax) / 2
	cropW, cropH, zoom := geom.SizeForZoom(midZoom, opts.AspectRatio)

	cropX := (1.0 - cropW) / 2
	cropY := (1.0 - cropH) / 2

	crop := records.CropRect{
		X:    geom.Round6(cropX),
		Y:    geom.Round6(geom.FlipY(cropY + cropH)),
		W:    geom.Round6(cropW),
		H:    geom.Round6(cropH),
		Zoom: geom.Round6(zoom),
	}

	return Embedding{
		Crop:      crop,
		IdealCrop: idealFromCrop(crop),
		State: &State{
			Zoom:          zoom,
			CropW:         cropW,
			CropH:         cropH,
			CanvasAnchorX: 0.5,
			CanvasAnchorY: 0.5,
			FirstFrameSX:  0.5,
			FirstFrameSY:  0.5,
		},
	}
}

func idealFromCrop(crop records.CropRect) records.IdealCrop {
	return records.IdealCrop{
		X:      crop.X,
		Y:      crop.Y,
		W:      crop.W,
		H:      crop.H,
		Zoom:   crop.Zoom,
		Source: records.SourceYouTube,
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
