package astrologer

import "database/sql"

const (
	ColumnID   = "_id"
	ColumnName = "name"
	ColumnType = "type"
)

type Astrologer struct {
	ID   string         `db:"id" json:"_id"`
	Name sql.NullString `db:"name" json:"name"`
	Type sql.NullString `db:"type" json:"type"`
}
