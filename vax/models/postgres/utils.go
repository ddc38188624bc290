package postgres

import (
	"database/sql"
	"time"
)

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// nullable turns an optional id into a query argument, nil for SQL NULL.
func nullable(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
