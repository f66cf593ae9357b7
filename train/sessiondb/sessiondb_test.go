package sessiondb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestSessionDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.sqlite")
	db, err := Open(logs.NewTestingLog(t), dbPath)
	require.NoError(t, err)

	n, err := db.Count()
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	rec := &Session{
		SessionID:       "session_youtube_2026-08-01_10-00-00_ab12cd34",
		Dir:             "/data/sessions/session_youtube_2026-08-01_10-00-00_ab12cd34",
		FPS:             30,
		FrameCount:      450,
		DurationSeconds: 15.0,
		Source:          "youtube",
		CreatedAt:       dbh.MakeIntTime(time.Now()),
	}
	require.NoError(t, db.Upsert(rec))

	// Re-extracting the same session replaces the entry instead of
	// duplicating it
	rec2 := &Session{
		SessionID:       rec.SessionID,
		Dir:             rec.Dir,
		FPS:             30,
		FrameCount:      900,
		DurationSeconds: 30.0,
		Source:          "youtube",
		CreatedAt:       dbh.MakeIntTime(time.Now()),
	}
	require.NoError(t, db.Upsert(rec2))

	n, err = db.Count()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	list, err := db.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 900, list[0].FrameCount)
}
