package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stephancmorris/macOS-rl-viritual-camera/pkg/records"
	"github.com/stretchr/testify/require"
)

func testFrame(i int) *records.FrameRecord {
	sx := 0.3 + 0.001*float64(i)
	crop := records.CropRect{X: 0.1, Y: 0.15, W: 0.8, H: 0.45, Zoom: 2.222222}
	return &records.FrameRecord{
		T:        float64(i) / 30,
		FrameIdx: i,
		Speaker: &records.Speaker{
			X: sx, Y: 0.5, Z: 2.857143,
			BBox:       [4]float64{sx - 0.15, 0.35, 0.3, 0.35},
			Confidence: 0.95,
		},
		Keypoints: &records.Keypoints{
			HeadX: sx, HeadY: 0.65, WaistX: sx, WaistY: 0.45,
			PoseConfidence: 0.9,
		},
		CurrentCrop: crop,
		IdealCrop: records.IdealCrop{
			X: crop.X, Y: crop.Y, W: crop.W, H: crop.H, Zoom: crop.Zoom,
			Source: records.SourceYouTube,
		},
	}
}

func writeTestSession(t *testing.T, baseDir string, numFrames int) string {
	logger := logs.NewTestingLog(t)
	w, err := NewWriter(logger, baseDir, WriterConfig{
		VideoTitle:          "test clip",
		FPS:                 30,
		Width:               1920,
		Height:              1080,
		ConfidenceThreshold: 0.5,
		HighAccuracy:        true,
	})
	require.NoError(t, err)

	for i := 0; i < numFrames; i++ {
		require.NoError(t, w.WriteFrame(testFrame(i)))
	}
	require.Equal(t, numFrames, w.NumWritten())
	require.NoError(t, w.Finalize(numFrames, float64(numFrames)/30))
	return w.SessionID
}

func TestWriteScanRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sessionID := writeTestSession(t, dir, 90)

	sessions := Scan(logs.NewTestingLog(t), []string{dir}, 30)
	require.Len(t, sessions, 1)

	s := sessions[0]
	require.Equal(t, sessionID, s.SessionID)
	require.Equal(t, 30, s.FPS)
	require.Equal(t, SourceYouTube, s.Source)
	require.Len(t, s.Frames, 90)

	// Values survive the JSON round trip exactly
	want := testFrame(17)
	got := s.Frames[17]
	require.Equal(t, want.T, got.T)
	require.Equal(t, *want.Speaker, *got.Speaker)
	require.Equal(t, *want.Keypoints, *got.Keypoints)
	require.Equal(t, want.CurrentCrop, got.CurrentCrop)
	require.Equal(t, want.IdealCrop, got.IdealCrop)
}

func TestScanFiltersShortSessions(t *testing.T) {
	dir := t.TempDir()
	writeTestSession(t, dir, 10)
	longID := writeTestSession(t, dir, 60)

	sessions := Scan(logs.NewTestingLog(t), []string{dir}, 30)
	require.Len(t, sessions, 1)
	require.Equal(t, longID, sessions[0].SessionID)
}

func TestScanSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	sessionDir := filepath.Join(dir, "session_manual_test")
	require.NoError(t, os.MkdirAll(sessionDir, 0770))

	content := `{"t":0,"frame_idx":0,"speaker":null,"keypoints":null,"current_crop":{"x":0,"y":0,"w":1,"h":0.5625,"zoom":1.777778},"ideal_crop":{"x":0,"y":0,"w":1,"h":0.5625,"zoom":1.777778,"source":"manual"},"interpolating":false}
this line is garbage
{"t":0.033,"frame_idx":1,"speaker":null,"keypoints":null,"current_crop":{"x":0,"y":0,"w":1,"h":0.5625,"zoom":1.777778},"ideal_crop":{"x":0,"y":0,"w":1,"h":0.5625,"zoom":1.777778,"source":"manual"},"interpolating":false}
`
	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "frames.jsonl"), []byte(content), 0660))

	sessions := Scan(logs.NewTestingLog(t), []string{dir}, 1)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Frames, 2)
	// No metadata.json: fps and source fall back to defaults
	require.Equal(t, DefaultFPS, sessions[0].FPS)
	require.Equal(t, SourceUnknown, sessions[0].Source)
}

func TestScanIgnoresMissingDirs(t *testing.T) {
	sessions := Scan(logs.NewTestingLog(t), []string{"/no/such/dir"}, 30)
	require.Empty(t, sessions)

	// Unrelated directories are not sessions
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not_a_session"), 0770))
	sessions = Scan(logs.NewTestingLog(t), []string{dir}, 30)
	require.Empty(t, sessions)
}

func TestScanSortsBySessionID(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"session_b", "session_a", "session_c"} {
		sessionDir := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(sessionDir, 0770))
		line := `{"t":0,"frame_idx":0,"speaker":null,"keypoints":null,"current_crop":{"x":0,"y":0,"w":1,"h":0.5625,"zoom":1.777778},"ideal_crop":{"x":0,"y":0,"w":1,"h":0.5625,"zoom":1.777778,"source":"auto"},"interpolating":false}` + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "frames.jsonl"), []byte(line), 0660))
	}
	sessions := Scan(logs.NewTestingLog(t), []string{dir}, 1)
	require.Len(t, sessions, 3)
	require.Equal(t, "session_a", sessions[0].SessionID)
	require.Equal(t, "session_b", sessions[1].SessionID)
	require.Equal(t, "session_c", sessions[2].SessionID)
}
