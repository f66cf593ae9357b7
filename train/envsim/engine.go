package envsim

import (
	"fmt"
	"math/rand"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/geom"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/reward"
	"github.com/stephancmorris/macOS-rl-viritual-camera/train/session"
)

// Package envsim replays recorded sessions as a discrete-time control loop:
// the policy observes the speaker and the current crop, commands pan/tilt/
// zoom velocities, and is scored on the resulting framing. One Engine owns
// one episode at a time; Reset replaces the episode state wholesale, and
// nothing here is safe for concurrent use.

// Per-step actuation limits, matching the live shot composer's clamps.
const (
	DefaultMaxPanSpeed  = 0.02 // max 2% of canvas per frame
	DefaultMaxTiltSpeed = 0.02
	DefaultMaxZoomSpeed = 0.05 // max 5% zoom change per frame
	DefaultMaxZoom      = 4.0
	DefaultMinCropH     = 0.25 // the crop height at max zoom
)

const (
	DefaultMinEpisodeLen = 60
	DefaultMaxEpisodeLen = 900
)

// actionHistorySize is the ring capacity for recent actions. The jitter
// term needs the two most recent; ring capacities are powers of 2.
const actionHistorySize = 4

// Limits bound how far a single action can move the crop.
type Limits struct {
	MaxPanSpeed  float64
	MaxTiltSpeed float64
	MaxZoomSpeed float64
	MaxZoom      float64
	MinCropH     float64
	AspectRatio  float64
}

func DefaultLimits() Limits {
	return Limits{
		MaxPanSpeed:  DefaultMaxPanSpeed,
		MaxTiltSpeed: DefaultMaxTiltSpeed,
		MaxZoomSpeed: DefaultMaxZoomSpeed,
		MaxZoom:      DefaultMaxZoom,
		MinCropH:     DefaultMinCropH,
		AspectRatio:  16.0 / 9.0,
	}
}

// Options configure an Engine.
type Options struct {
	Limits        Limits
	MinEpisodeLen int
	MaxEpisodeLen int
}

func DefaultOptions() Options {
	return Options{
		Limits:        DefaultLimits(),
		MinEpisodeLen: DefaultMinEpisodeLen,
		MaxEpisodeLen: DefaultMaxEpisodeLen,
	}
}

// ResetInfo describes the episode that Reset sampled.
type ResetInfo struct {
	EpisodeID     string // unique per episode
	SessionID     string
	Source        string
	EpisodeLength int
}

// StepInfo identifies the frame a step landed on.
type StepInfo struct {
	FrameIdx  int
	Timestamp float64
}

// Engine replays a contiguous slice of frame records as a control loop.
type Engine struct {
	log      logs.Log
	sessions []*session.Session
	limits   Limits
	minLen   int
	maxLen   int

	// Episode state, replaced wholesale by Reset
	frames  []records.FrameRecord
	fps     int
	stepIdx int
	running bool

	cropX, cropY float64
	cropW, cropH float64
	zoom         float64

	actions        ringbuffer.RingP[Action]
	prevSpeakerX   float64
	prevSpeakerY   float64
	hasPrevSpeaker bool
}

// NewEngine builds an engine over a pool of loaded sessions.
// An empty pool is a configuration error, not something to limp past:
// every downstream training signal would be garbage.
func NewEngine(logger logs.Log, sessions []*session.Session, opts Options) (*Engine, error) {
	usable := make([]*session.Session, 0, len(sessions))
	for _, s := range sessions {
		if len(s.Frames) > 0 {
			usable = append(usable, s)
		}
	}
	sessions = usable
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no usable sessions: run the extraction pipeline first to generate training data")
	}
	if opts.MinEpisodeLen <= 0 {
		opts.MinEpisodeLen = DefaultMinEpisodeLen
	}
	if opts.MaxEpisodeLen <= 0 {
		opts.MaxEpisodeLen = DefaultMaxEpisodeLen
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	nFrames := 0
	for _, s := range sessions {
		nFrames += len(s.Frames)
	}
	logger.Infof("Simulation engine ready: %v sessions, %v frames", len(sessions), nFrames)
	return &Engine{
		log:      logger,
		sessions: sessions,
		limits:   opts.Limits,
		minLen:   opts.MinEpisodeLen,
		maxLen:   opts.MaxEpisodeLen,
	}, nil
}

// Reset samples a new episode: a random session, a random length within
// [minLen, maxLen] (bounded by the session), and a random start offset.
// All randomness comes from rng. Returns the first observation, with zero
// velocity.
func (e *Engine) Reset(rng *rand.Rand) (Observation, ResetInfo) {
	s := e.sessions[rng.Intn(len(e.sessions))]
	total := len(s.Frames)

	lo := min(e.minLen, total)
	hi := min(total, e.maxLen)
	epLen := lo + rng.Intn(hi-lo+1)
	start := rng.Intn(total - epLen + 1)

	e.frames = s.Frames[start : start+epLen]
	e.fps = s.FPS
	e.stepIdx = 0
	e.running = true

	first := &e.frames[0]
	e.cropX = first.CurrentCrop.X
	e.cropY = first.CurrentCrop.Y
	e.cropW = first.CurrentCrop.W
	e.cropH = first.CurrentCrop.H
	e.zoom = first.CurrentCrop.Zoom

	e.actions = ringbuffer.NewRingP[Action](actionHistorySize)
	e.hasPrevSpeaker = false
	if first.Speaker != nil {
		e.prevSpeakerX = first.Speaker.X
		e.prevSpeakerY = first.Speaker.Y
		e.hasPrevSpeaker = true
	}

	obs := BuildObservation(first, e.cropState(), 0, 0)
	return obs, ResetInfo{
		EpisodeID:     uuid.NewString(),
		SessionID:     s.SessionID,
		Source:        s.Source,
		EpisodeLength: epLen,
	}
}

// Step applies one velocity action and advances one frame.
// terminated is always false: episodes end only by truncation, when the
// sampled slice runs out.
func (e *Engine) Step(action Action) (obs Observation, rew float64, terminated, truncated bool, info StepInfo) {
	if !e.running {
		panic("envsim: Step called before Reset")
	}
	action = action.Clamped()

	e.applyAction(action)

	e.stepIdx++
	if e.stepIdx >= len(e.frames) {
		e.stepIdx = len(e.frames) - 1
		truncated = true
	}

	frame := &e.frames[e.stepIdx]

	// Speaker velocity: fps-scaled finite difference of consecutive
	// speaker centers, zero if either frame lacks a speaker.
	velX, velY := 0.0, 0.0
	if frame.Speaker != nil && e.hasPrevSpeaker {
		velX = geom.Clamp((frame.Speaker.X-e.prevSpeakerX)*float64(e.fps), -1, 1)
		velY = geom.Clamp((frame.Speaker.Y-e.prevSpeakerY)*float64(e.fps), -1, 1)
	}

	obs = BuildObservation(frame, e.cropState(), velX, velY)

	in := reward.Inputs{
		HasPerson: frame.Speaker != nil,
		CropX:     e.cropX,
		CropY:     e.cropY,
		CropW:     e.cropW,
		CropH:     e.cropH,
		Action:    action.slice(),
		VelocityX: velX,
		VelocityY: velY,
	}
	if frame.Speaker != nil {
		in.SpeakerX = frame.Speaker.X
	}
	if frame.Keypoints != nil {
		in.HeadY = frame.Keypoints.HeadY
		in.WaistY = frame.Keypoints.WaistY
	}
	if n := e.actions.Len(); n >= 1 {
		in.PrevAction = e.actions.Peek(n - 1).slice()
	}
	if n := e.actions.Len(); n >= 2 {
		in.PrevPrevAction = e.actions.Peek(n - 2).slice()
	}
	rew = reward.Compute(in)

	e.actions.Add(action)
	if frame.Speaker != nil {
		e.prevSpeakerX = frame.Speaker.X
		e.prevSpeakerY = frame.Speaker.Y
		e.hasPrevSpeaker = true
	}

	info = StepInfo{
		FrameIdx:  frame.FrameIdx,
		Timestamp: frame.T,
	}
	return obs, rew, false, truncated, info
}

// applyAction moves the crop by the commanded velocities, then clamps
// everything back inside the canvas. Zoom changes re-derive the crop size
// at the locked aspect ratio, mirroring the embedder's sizing rule.
func (e *Engine) applyAction(action Action) {
	dx := float64(action[0]) * e.limits.MaxPanSpeed
	dy := float64(action[1]) * e.limits.MaxTiltSpeed
	dz := float64(action[2]) * e.limits.MaxZoomSpeed

	maxZoom := e.limits.MaxZoom
	if e.limits.MinCropH > 0 && 1.0/e.limits.MinCropH < maxZoom {
		maxZoom = 1.0 / e.limits.MinCropH
	}
	zoom := geom.Clamp(e.zoom+dz, 1.0, maxZoom)
	e.cropW, e.cropH, e.zoom = geom.SizeForZoom(zoom, e.limits.AspectRatio)

	e.cropX = geom.Clamp(e.cropX+dx, 0, 1.0-e.cropW)
	e.cropY = geom.Clamp(e.cropY+dy, 0, 1.0-e.cropH)
}

func (e *Engine) cropState() records.CropRect {
	return records.CropRect{
		X:    e.cropX,
		Y:    e.cropY,
		W:    e.cropW,
		H:    e.cropH,
		Zoom: e.zoom,
	}
}

// Crop exposes the engine's current crop, for tooling and tests.
func (e *Engine) Crop() records.CropRect {
	return e.cropState()
}

// NumSessions is the size of the loaded session pool.
func (e *Engine) NumSessions() int {
	return len(e.sessions)
}
