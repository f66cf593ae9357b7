package reward

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Package reward scores a single control step. Five shaping terms, each a
// pure function of its numeric inputs, summed and clipped. The shaping here
// is what a trained policy actually optimizes, so the constants are part of
// the contract, not tuning suggestions.

// Third lines within the crop. Vertically the head sits at the upper
// third and the waist at the lower; horizontally the speaker sits near
// either one.
const (
	lowerThird = 0.333
	upperThird = 0.667
)

const (
	framingSigma = 0.1
	thirdsSigma  = 0.05

	headEdgeMargin = 0.05 // soft cutoff penalty inside this fraction of the crop edge

	minSpeakerSpeed = 0.01 // below this the anticipation term is dead

	minReward = -2.0
	maxReward = 1.5
)

// minCropDimension mirrors the embedder's guard: crops thinner than this
// make relative positions meaningless.
const minCropDimension = 0.01

// Inputs are everything a single step's score depends on.
// Action history entries are nil until enough steps have elapsed.
type Inputs struct {
	HasPerson bool

	// Canvas-space positions from the current frame
	HeadY    float64
	WaistY   float64
	SpeakerX float64

	// Crop state after the action was applied
	CropX float64
	CropY float64
	CropW float64
	CropH float64

	// The action just taken and the two before it
	Action         []float64
	PrevAction     []float64
	PrevPrevAction []float64

	// Speaker velocity, per-axis clamped to [-1,1]
	VelocityX float64
	VelocityY float64
}

// Framing rewards rule-of-thirds vertical placement: head at 2/3 from the
// crop bottom, waist at 1/3, with Gaussian falloff.
// Range [0, 1]; 0 without a person or with a degenerate crop.
func Framing(headY, waistY, cropY, cropH float64, hasPerson bool) float64 {
	if !hasPerson || cropH < minCropDimension {
		return 0
	}
	headRel := (headY - cropY) / cropH
	waistRel := (waistY - cropY) / cropH
	e := (math.Abs(headRel-upperThird) + math.Abs(waistRel-lowerThird)) / 2
	return gaussian(e, framingSigma)
}

// Jitter penalizes jerk: the change in action acceleration between steps.
// Range [-0.5, 0]; 0 until three actions of history exist.
func Jitter(action, prevAction, prevPrevAction []float64) float64 {
	if action == nil || prevAction == nil || prevPrevAction == nil {
		return 0
	}
	accelNow := make([]float64, len(action))
	accelPrev := make([]float64, len(action))
	floats.SubTo(accelNow, action, prevAction)
	floats.SubTo(accelPrev, prevAction, prevPrevAction)
	floats.Sub(accelNow, accelPrev)
	jerk := floats.Norm(accelNow, 2)
	return -0.5 * math.Min(jerk, 1.0)
}

// HeadCutoff penalizes a head outside the crop (-1.0) or within 5% of
// either crop edge (-0.5). Range [-1, 0]; 0 without a person.
func HeadCutoff(headY, cropY, cropH float64, hasPerson bool) float64 {
	if !hasPerson || cropH < minCropDimension {
		return 0
	}
	headRel := (headY - cropY) / cropH
	if headRel < 0 || headRel > 1 {
		return -1.0
	}
	if math.Min(headRel, 1.0-headRel) < headEdgeMargin {
		return -0.5
	}
	return 0
}

// RuleOfThirds rewards the speaker sitting near a horizontal third line.
// Range [0, 0.2]; 0 without a person or with a degenerate crop.
func RuleOfThirds(speakerX, cropX, cropW float64, hasPerson bool) float64 {
	if !hasPerson || cropW < minCropDimension {
		return 0
	}
	rel := (speakerX - cropX) / cropW
	dist := math.Min(math.Abs(rel-lowerThird), math.Abs(rel-upperThird))
	return 0.2 * gaussian(dist, thirdsSigma)
}

// Anticipation rewards camera movement aligned with the speaker's velocity.
// Range [0, 0.1]; dead when the speaker is (nearly) still, the action has
// no pan/tilt component, or there is no person.
func Anticipation(actionDX, actionDY, velocityX, velocityY float64, hasPerson bool) float64 {
	if !hasPerson {
		return 0
	}
	movement := []float64{actionDX, actionDY}
	velocity := []float64{velocityX, velocityY}
	speed := floats.Norm(velocity, 2)
	if speed < minSpeakerSpeed {
		return 0
	}
	moveNorm := floats.Norm(movement, 2)
	if moveNorm < 1e-8 {
		return 0
	}
	alignment := floats.Dot(movement, velocity) / (moveNorm * speed)
	return 0.1 * math.Max(0, alignment)
}

// Compute sums all five terms and clips to [-2.0, 1.5].
func Compute(in Inputs) float64 {
	r := 0.0
	r += Framing(in.HeadY, in.WaistY, in.CropY, in.CropH, in.HasPerson)
	r += Jitter(in.Action, in.PrevAction, in.PrevPrevAction)
	r += HeadCutoff(in.HeadY, in.CropY, in.CropH, in.HasPerson)
	r += RuleOfThirds(in.SpeakerX, in.CropX, in.CropW, in.HasPerson)

	actionDX, actionDY := 0.0, 0.0
	if in.Action != nil {
		actionDX = in.Action[0]
		actionDY = in.Action[1]
	}
	r += Anticipation(actionDX, actionDY, in.VelocityX, in.VelocityY, in.HasPerson)

	if math.IsNaN(r) {
		return 0
	}
	return clamp(r, minReward, maxReward)
}

func gaussian(e, sigma float64) float64 {
	return math.Exp(-(e * e) / (2 * sigma * sigma))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
