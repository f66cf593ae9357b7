package sessiondb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE session(
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			dir TEXT NOT NULL,
			fps INT NOT NULL,
			frame_count INT NOT NULL,
			duration_seconds REAL NOT NULL,
			source TEXT NOT NULL,
			created_at INT NOT NULL
		);

		CREATE UNIQUE INDEX idx_session_session_id ON session (session_id);
	`))

	return migs
}
