package sessiondb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// Package sessiondb maintains a SQLite catalog of extracted sessions, so
// that tooling can list and filter training data without rescanning every
// frames.jsonl on disk. The simulation core never reads this database;
// it is bookkeeping for the extraction and training commands.

type SessionDB struct {
	log logs.Log
	db  *gorm.DB
}

// Open opens or creates the catalog database.
func Open(logger logs.Log, dbFilename string) (*SessionDB, error) {
	logger = logs.NewPrefixLogger(logger, "SessionDB")
	if err := os.MkdirAll(filepath.Dir(dbFilename), 0770); err != nil {
		return nil, fmt.Errorf("Failed to create catalog dir for %v: %w", dbFilename, err)
	}
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open session catalog %v: %w", dbFilename, err)
	}
	return &SessionDB{
		log: logger,
		db:  db,
	}, nil
}

// Upsert records a session, replacing any previous entry with the same
// session ID (re-extraction of the same source).
func (s *SessionDB) Upsert(rec *Session) error {
	existing := Session{}
	err := s.db.First(&existing, "session_id = ?", rec.SessionID).Error
	if err == nil {
		rec.ID = existing.ID
		return s.db.Save(rec).Error
	} else if err == gorm.ErrRecordNotFound {
		return s.db.Create(rec).Error
	}
	return err
}

// List returns all cataloged sessions, newest first.
func (s *SessionDB) List() ([]Session, error) {
	sessions := []Session{}
	if err := s.db.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Count returns the number of cataloged sessions.
func (s *SessionDB) Count() (int64, error) {
	n := int64(0)
	err := s.db.Model(&Session{}).Count(&n).Error
	return n, err
}
