package store

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestStore_NormalizeValue(t *testing.T) {
	t.Parallel()

	gameDate := time.Date(2021, 4, 4, 0, 0, 0, 0, time.UTC)
	stamp := time.Date(2021, 4, 4, 13, 5, 0, 0, time.FixedZone("PDT", -7*3600))

	tests := []struct {
		name string
		in   any
		oid  uint32
		want any
	}{
		{name: "nil passes through", in: nil, want: nil},
		{name: "date renders as day", in: gameDate, oid: pgtype.DateOID, want: "2021-04-04"},
		{name: "timestamp renders as rfc3339 utc", in: stamp, oid: pgtype.TimestamptzOID, want: "2021-04-04T20:05:00Z"},
		{
			name: "numeric renders as float64",
			in:   pgtype.Numeric{Int: big.NewInt(125), Exp: -2, Valid: true},
			oid:  pgtype.NumericOID,
			want: float64(1.25),
		},
		{
			name: "invalid numeric renders as null",
			in:   pgtype.Numeric{},
			oid:  pgtype.NumericOID,
			want: nil,
		},
		{
			name: "uuid bytes render canonically",
			in:   [16]byte{0x9b, 0x1d, 0xeb, 0x4d, 0x3b, 0x7d, 0x4b, 0xad, 0x9b, 0xdd, 0x2b, 0x0d, 0x7b, 0x3d, 0xcb, 0x6d},
			oid:  pgtype.UUIDOID,
			want: "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		},
		{name: "bytea renders as string", in: []byte("raw"), oid: pgtype.ByteaOID, want: "raw"},
		{name: "int passes through", in: int64(42), oid: pgtype.Int8OID, want: int64(42)},
		{name: "string passes through", in: "mlb-660271", oid: pgtype.TextOID, want: "mlb-660271"},
		{name: "bool passes through", in: true, oid: pgtype.BoolOID, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, normalizeValue(tt.in, tt.oid))
		})
	}
}
