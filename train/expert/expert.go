package expert

import (
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/geom"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/envsim"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/session"
)

// Package expert turns ground-truth crop trajectories into supervised
// (observation, action) pairs for imitation pre-training. The action label
// is the velocity command that moves the crop from one ideal crop to the
// next; the observation treats the first crop as the current state, built
// by the same code path the simulator uses, so a cloned policy sees
// exactly what it will see at deployment.

// Pair is one supervised training sample.
type Pair struct {
	Observation envsim.Observation
	Action      envsim.Action
}

// DeriveAction inverts the simulator's action application: the velocity
// action that moves crop a to crop b in one step, each axis clamped to
// [-1,1]. Transitions faster than the speed limits saturate.
func DeriveAction(a, b records.CropRect, limits envsim.Limits) envsim.Action {
	dx := (b.X - a.X) / limits.MaxPanSpeed
	dy := (b.Y - a.Y) / limits.MaxTiltSpeed
	dz := (b.Zoom - a.Zoom) / limits.MaxZoomSpeed
	return envsim.Action{
		float32(geom.Clamp(dx, -1, 1)),
		float32(geom.Clamp(dy, -1, 1)),
		float32(geom.Clamp(dz, -1, 1)),
	}
}

// ExtractPairs derives one pair per consecutive frame pair of a session.
// Velocity for the observation comes from the speaker positions one frame
// back, zero for the first sample or when either frame lacks a speaker.
func ExtractPairs(s *session.Session, limits envsim.Limits) []Pair {
	if len(s.Frames) < 2 {
		return nil
	}
	fps := float64(s.FPS)
	if fps <= 0 {
		fps = session.DefaultFPS
	}

	pairs := make([]Pair, 0, len(s.Frames)-1)
	for i := 0; i+1 < len(s.Frames); i++ {
		frame := &s.Frames[i]
		ideal := frame.IdealCrop.Crop()
		idealNext := s.Frames[i+1].IdealCrop.Crop()

		velX, velY := 0.0, 0.0
		if i > 0 {
			prev := s.Frames[i-1].Speaker
			curr := frame.Speaker
			if prev != nil && curr != nil {
				velX = geom.Clamp((curr.X-prev.X)*fps, -1, 1)
				velY = geom.Clamp((curr.Y-prev.Y)*fps, -1, 1)
			}
		}

		pairs = append(pairs, Pair{
			Observation: envsim.BuildObservation(frame, ideal, velX, velY),
			Action:      DeriveAction(ideal, idealNext, limits),
		})
	}
	return pairs
}

// ExtractAll concatenates the pairs of every session.
func ExtractAll(sessions []*session.Session, limits envsim.Limits) []Pair {
	pairs := []Pair{}
	for _, s := range sessions {
		pairs = append(pairs, ExtractPairs(s, limits)...)
	}
	return pairs
}
