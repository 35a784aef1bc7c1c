package postgres

import (
	"database/sql"
	"time"
)

type statsTableModel struct {
	PlayerKey       string    `db:"player_key"`
	FirstSeen       time.Time `db:"first_seen"`
	LastSeen        time.Time `db:"last_seen"`
	OccurrenceCount int64     `db:"occurrence_count"`
}

type siteNameRow struct {
	SiteName string `db:"site_name"`
	RawName  string `db:"raw_name"`
}

type keyTeamRow struct {
	PlayerKey string `db:"player_key"`
	TeamName  string `db:"team_name"`
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
