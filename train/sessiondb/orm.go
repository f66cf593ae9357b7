package sessiondb

import (
	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Session is one catalog entry per extracted session directory.
type Session struct {
	BaseModel
	SessionID       string      `json:"sessionID" gorm:"uniqueIndex"`
	Dir             string      `json:"dir"` // absolute path of the session directory
	FPS             int         `json:"fps"`
	FrameCount      int         `json:"frameCount"`
	DurationSeconds float64     `json:"durationSeconds"`
	Source          string      `json:"source"` // live, youtube or unknown
	CreatedAt       dbh.IntTime `json:"createdAt"`
}
