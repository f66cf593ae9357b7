package envsim

import (
	"github.com/chewxy/math32"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/geom"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
)

// ObservationSize is the width of the observation vector. The element
// order is load-bearing: trained policies index into it by position.
const ObservationSize = 18

// Observation is the policy input for one step:
//
//	[ 0] has_person (0 or 1)
//	[ 1] speaker x
//	[ 2] speaker y
//	[ 3] speaker depth proxy, normalized (min(z/10, 1))
//	[ 4] head x
//	[ 5] head y
//	[ 6] waist x
//	[ 7] waist y
//	[ 8] crop x
//	[ 9] crop y
//	[10] crop w
//	[11] crop h
//	[12] zoom, normalized (min(zoom/4, 1))
//	[13] speaker velocity x, in [-1,1]
//	[14] speaker velocity y, in [-1,1]
//	[15] head y relative to crop, in [0,1]
//	[16] waist y relative to crop, in [0,1]
//	[17] pose confidence
//
// Every element is finite: NaN maps to 0, +Inf to 1, -Inf to -1.
type Observation [ObservationSize]float32

// Action is a per-step velocity command (pan, tilt, zoom), each in [-1,1].
// It is a velocity, not an absolute position.
type Action [3]float32

// Clamped returns the action with each element clamped to [-1,1].
// Out-of-range input is clamped, never rejected.
func (a Action) Clamped() Action {
	for i := range a {
		a[i] = math32.Max(-1, math32.Min(1, a[i]))
	}
	return a
}

func (a Action) slice() []float64 {
	return []float64{float64(a[0]), float64(a[1]), float64(a[2])}
}

// BuildObservation assembles the observation vector from a frame record,
// the crop state, and the speaker velocity. Absent speaker or keypoints
// default their fields to 0.
func BuildObservation(frame *records.FrameRecord, crop records.CropRect, velX, velY float64) Observation {
	obs := Observation{}

	hasPerson := frame.Speaker != nil
	if hasPerson {
		obs[0] = 1
		obs[1] = float32(frame.Speaker.X)
		obs[2] = float32(frame.Speaker.Y)
		obs[3] = math32.Min(float32(frame.Speaker.Z)/10, 1)
	}
	if frame.Keypoints != nil {
		obs[4] = float32(frame.Keypoints.HeadX)
		obs[5] = float32(frame.Keypoints.HeadY)
		obs[6] = float32(frame.Keypoints.WaistX)
		obs[7] = float32(frame.Keypoints.WaistY)
		obs[17] = float32(frame.Keypoints.PoseConfidence)
	}

	obs[8] = float32(crop.X)
	obs[9] = float32(crop.Y)
	obs[10] = float32(crop.W)
	obs[11] = float32(crop.H)
	obs[12] = math32.Min(float32(crop.Zoom)/float32(DefaultMaxZoom), 1)
	obs[13] = float32(velX)
	obs[14] = float32(velY)

	if hasPerson && frame.Keypoints != nil {
		cropRect := geom.Rect{X: crop.X, Y: crop.Y, W: crop.W, H: crop.H}
		headRel := cropRect.RelativeTo(geom.Point{X: frame.Keypoints.HeadX, Y: frame.Keypoints.HeadY})
		waistRel := cropRect.RelativeTo(geom.Point{X: frame.Keypoints.WaistX, Y: frame.Keypoints.WaistY})
		obs[15] = float32(geom.Clamp01(headRel.Y))
		obs[16] = float32(geom.Clamp01(waistRel.Y))
	}

	for i := range obs {
		obs[i] = sanitize(obs[i])
	}
	return obs
}

func sanitize(v float32) float32 {
	switch {
	case math32.IsNaN(v):
		return 0
	case math32.IsInf(v, 1):
		return 1
	case math32.IsInf(v, -1):
		return -1
	}
	return v
}
