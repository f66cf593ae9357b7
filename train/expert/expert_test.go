package expert

import (
	"math/rand"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/envsim"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/session"
	"github.com/stretchr/testify/require"
)

// cropAt builds a crop consistent with the simulator's sizing rules.
func cropAt(x, y, zoom float64) records.CropRect {
	h := 1.0 / zoom
	w := h * 16.0 / 9.0
	return records.CropRect{X: x, Y: y, W: w, H: h, Zoom: zoom}
}

func sessionFromCrops(crops []records.CropRect) *session.Session {
	frames := make([]records.FrameRecord, 0, len(crops))
	for i, c := range crops {
		sx := 0.4 + 0.002*float64(i)
		frames = append(frames, records.FrameRecord{
			T:        float64(i) / 30,
			FrameIdx: i,
			Speaker: &records.Speaker{
				X: sx, Y: 0.5, Z: 3,
				BBox:       [4]float64{sx - 0.1, 0.35, 0.2, 0.3},
				Confidence: 0.9,
			},
			Keypoints: &records.Keypoints{
				HeadX: sx, HeadY: 0.62, WaistX: sx, WaistY: 0.42,
				PoseConfidence: 0.85,
			},
			CurrentCrop: c,
			IdealCrop: records.IdealCrop{
				X: c.X, Y: c.Y, W: c.W, H: c.H, Zoom: c.Zoom,
				Source: records.SourceYouTube,
			},
		})
	}
	return &session.Session{SessionID: "session_expert", Frames: frames, FPS: 30, Source: session.SourceYouTube}
}

func TestDeriveAction(t *testing.T) {
	limits := envsim.DefaultLimits()
	c0 := cropAt(0.1, 0.2, 2.5)

	// A pan of exactly the speed limit maps to action 1.0
	c1 := cropAt(0.1+limits.MaxPanSpeed, 0.2, 2.5)
	a := DeriveAction(c0, c1, limits)
	require.InDelta(t, 1.0, float64(a[0]), 1e-6)
	require.InDelta(t, 0.0, float64(a[1]), 1e-6)
	require.InDelta(t, 0.0, float64(a[2]), 1e-6)

	// Faster-than-possible transitions saturate
	c2 := cropAt(0.3, 0.2, 2.5)
	a = DeriveAction(c0, c2, limits)
	require.Equal(t, float32(1), a[0])

	// Reverse direction flips the sign
	a = DeriveAction(c1, c0, limits)
	require.InDelta(t, -1.0, float64(a[0]), 1e-6)

	// Zoom axis works off the zoom value, not the height
	c3 := cropAt(0.1, 0.2, 2.5+limits.MaxZoomSpeed/2)
	a = DeriveAction(c0, c3, limits)
	require.InDelta(t, 0.5, float64(a[2]), 1e-6)
}

// Deriving the action between two crops and replaying it through the
// simulator from the first crop's state must reproduce the second crop.
func TestRoundTripThroughSimulator(t *testing.T) {
	limits := envsim.DefaultLimits()

	c0 := cropAt(0.05, 0.1, 2.2)
	c1 := cropAt(0.05+0.013, 0.1-0.008, 2.2+0.031)
	s := sessionFromCrops([]records.CropRect{c0, c1})

	e, err := envsim.NewEngine(logs.NewTestingLog(t), []*session.Session{s}, envsim.DefaultOptions())
	require.NoError(t, err)
	e.Reset(rand.New(rand.NewSource(42)))

	action := DeriveAction(c0, c1, limits)
	e.Step(action)

	got := e.Crop()
	require.InDelta(t, c1.X, got.X, 1e-6)
	require.InDelta(t, c1.Y, got.Y, 1e-6)
	require.InDelta(t, c1.W, got.W, 1e-6)
	require.InDelta(t, c1.H, got.H, 1e-6)
	require.InDelta(t, c1.Zoom, got.Zoom, 1e-6)
}

func TestExtractPairs(t *testing.T) {
	limits := envsim.DefaultLimits()
	crops := []records.CropRect{
		cropAt(0.10, 0.20, 2.0),
		cropAt(0.11, 0.20, 2.0),
		cropAt(0.12, 0.21, 2.0),
		cropAt(0.12, 0.21, 2.02),
	}
	s := sessionFromCrops(crops)
	pairs := ExtractPairs(s, limits)
	require.Len(t, pairs, 3)

	// First sample has zero velocity by definition
	require.Equal(t, float32(0), pairs[0].Observation[13])
	require.Equal(t, float32(0), pairs[0].Observation[14])

	// Later samples see the speaker's drift (+0.002/frame at 30fps = 0.06)
	require.InDelta(t, 0.06, float64(pairs[1].Observation[13]), 1e-3)

	// Observation crop state comes from the first crop of each pair
	require.InDelta(t, crops[1].X, float64(pairs[1].Observation[8]), 1e-6)

	// Actions reflect the transitions
	require.InDelta(t, 0.5, float64(pairs[0].Action[0]), 1e-5) // +0.01 pan / 0.02
	require.Greater(t, float64(pairs[2].Action[2]), 0.0)       // zoom-in transition
}

func TestExtractPairsSparseSpeakers(t *testing.T) {
	limits := envsim.DefaultLimits()
	s := sessionFromCrops([]records.CropRect{
		cropAt(0.1, 0.2, 2.0),
		cropAt(0.1, 0.2, 2.0),
		cropAt(0.1, 0.2, 2.0),
	})
	// Middle frame loses its detection: velocity falls back to zero
	s.Frames[1].Speaker = nil
	s.Frames[1].Keypoints = nil

	pairs := ExtractPairs(s, limits)
	require.Len(t, pairs, 2)
	require.Equal(t, float32(0), pairs[1].Observation[13])
	require.Equal(t, float32(0), pairs[1].Observation[0]) // has_person
}

func TestExtractAll(t *testing.T) {
	limits := envsim.DefaultLimits()
	s1 := sessionFromCrops([]records.CropRect{cropAt(0.1, 0.2, 2.0), cropAt(0.11, 0.2, 2.0)})
	s2 := sessionFromCrops([]records.CropRect{cropAt(0.2, 0.1, 2.5), cropAt(0.2, 0.11, 2.5), cropAt(0.2, 0.12, 2.5)})
	pairs := ExtractAll([]*session.Session{s1, s2}, limits)
	require.Len(t, pairs, 3)

	require.Nil(t, ExtractPairs(sessionFromCrops([]records.CropRect{cropAt(0.1, 0.2, 2.0)}), limits))
}
