package db

import (
	"database/sql"
)

type Offer struct {
	ID          int64
	Area        sql.NullString
	Discount    sql.NullString
	Price       sql.NullString
	Description sql.NullString
	// Time is left as the driver hands it back, sqlite drivers differ
	// on whether timestamps come back parsed.
	Time interface{}
}
