package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// normalizeValue converts driver-native values into JSON-friendly ones:
// dates render as "2006-01-02", timestamps as RFC 3339 UTC, numerics as
// float64, UUID bytes as the canonical string, and bytea as string. Anything
// already JSON-friendly passes through unchanged.
func normalizeValue(v any, oid uint32) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		if oid == pgtype.DateOID {
			return val.Format("2006-01-02")
		}
		return val.UTC().Format(time.RFC3339)
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		return string(val)
	default:
		return v
	}
}
