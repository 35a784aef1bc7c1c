package postgres

import "time"

type mappingTableModel struct {
	VariantKey    string    `db:"variant_key"`
	PreferredName string    `db:"preferred_name"`
	CreatedAt     time.Time `db:"created_at"`
}

type skippedPairTableModel struct {
	Key1      string    `db:"key_1"`
	Key2      string    `db:"key_2"`
	SkippedAt time.Time `db:"skipped_at"`
}
