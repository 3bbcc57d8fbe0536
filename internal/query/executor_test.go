package query

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bbrzycki/datasetd/pkg/types"
)

type mockStore struct {
	QueryPageFunc func(ctx context.Context, st *Statement) (int64, []types.Row, error)
}

func (m *mockStore) QueryPage(ctx context.Context, st *Statement) (int64, []types.Row, error) {
	return m.QueryPageFunc(ctx, st)
}

func mustRow(t *testing.T, columns []string, values []any) types.Row {
	t.Helper()
	row, err := types.NewRow(columns, values)
	require.NoError(t, err)
	return row
}

func newTestExecutor(t *testing.T, store Store) *Executor {
	t.Helper()
	e, err := NewExecutor(slog.Default(), store)
	require.NoError(t, err)
	return e
}

func intPtr(v int64) *int64 { return &v }

func TestQuery_Executor_EnvelopeAndNextOffset(t *testing.T) {
	t.Parallel()

	d := testDescriptor(t)
	cols := []string{"player_id", "season"}
	store := &mockStore{
		QueryPageFunc: func(ctx context.Context, st *Statement) (int64, []types.Row, error) {
			rows := make([]types.Row, 2)
			for i := range rows {
				rows[i] = mustRow(t, cols, []any{"mlb-660271", 2021})
			}
			return 4, rows, nil
		},
	}
	e := newTestExecutor(t, store)

	slice, err := e.Execute(context.Background(), d, &types.DatasetQuery{
		Columns: cols,
		Limit:   intPtr(2),
		Offset:  intPtr(0),
	})
	require.NoError(t, err)
	require.Equal(t, "pitching_outings", slice.DatasetID)
	require.Equal(t, int64(4), slice.Total)
	require.Equal(t, 2, slice.Returned)
	require.Equal(t, int64(0), slice.Offset)
	require.NotNil(t, slice.NextOffset)
	require.Equal(t, int64(2), *slice.NextOffset)
	require.Len(t, slice.Data, 2)
	require.Equal(t, cols, slice.Data[0].Columns())
}

func TestQuery_Executor_NextOffsetBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		total    int64
		limit    int64
		offset   int64
		returned int
		wantNext *int64
	}{
		{name: "more rows remain", total: 4, limit: 2, offset: 0, returned: 2, wantNext: intPtr(2)},
		{name: "final exact page", total: 4, limit: 2, offset: 2, returned: 2, wantNext: nil},
		{name: "offset+limit equals total", total: 100, limit: 100, offset: 0, returned: 100, wantNext: nil},
		{name: "offset beyond total", total: 4, limit: 10, offset: 100, returned: 0, wantNext: nil},
		{name: "extreme offset does not overflow", total: 4, limit: 100, offset: math.MaxInt64 - 10, returned: 0, wantNext: nil},
		{name: "extreme offset with small limit", total: math.MaxInt64, limit: 1, offset: math.MaxInt64 - 1, returned: 0, wantNext: nil},
		{name: "empty result", total: 0, limit: 100, offset: 0, returned: 0, wantNext: nil},
		{name: "short page still follows formula", total: 10, limit: 3, offset: 0, returned: 2, wantNext: intPtr(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := testDescriptor(t)
			store := &mockStore{
				QueryPageFunc: func(ctx context.Context, st *Statement) (int64, []types.Row, error) {
					rows := make([]types.Row, tt.returned)
					for i := range rows {
						rows[i] = mustRow(t, []string{"player_id"}, []any{"mlb-1"})
					}
					return tt.total, rows, nil
				},
			}
			e := newTestExecutor(t, store)

			slice, err := e.Execute(context.Background(), d, &types.DatasetQuery{
				Columns: []string{"player_id"},
				Limit:   intPtr(tt.limit),
				Offset:  intPtr(tt.offset),
			})
			require.NoError(t, err)
			require.Equal(t, tt.total, slice.Total)
			require.Equal(t, tt.returned, slice.Returned)
			require.Equal(t, tt.offset, slice.Offset)
			if tt.wantNext == nil {
				require.Nil(t, slice.NextOffset)
			} else {
				require.NotNil(t, slice.NextOffset)
				require.Equal(t, *tt.wantNext, *slice.NextOffset)
			}
		})
	}
}

func TestQuery_Executor_DefaultsApplied(t *testing.T) {
	t.Parallel()

	d := testDescriptor(t)
	var gotFetchArgs []any
	store := &mockStore{
		QueryPageFunc: func(ctx context.Context, st *Statement) (int64, []types.Row, error) {
			gotFetchArgs = st.FetchArgs
			return 0, nil, nil
		},
	}
	e := newTestExecutor(t, store)

	slice, err := e.Execute(context.Background(), d, &types.DatasetQuery{})
	require.NoError(t, err)
	require.Equal(t, []any{int64(types.DefaultLimit), int64(0)}, gotFetchArgs)
	require.NotNil(t, slice.Data, "empty page must marshal as [], not null")
	require.Empty(t, slice.Data)
}

func TestQuery_Executor_InvalidColumnShortCircuitsStore(t *testing.T) {
	t.Parallel()

	d := testDescriptor(t)
	store := &mockStore{
		QueryPageFunc: func(ctx context.Context, st *Statement) (int64, []types.Row, error) {
			t.Fatal("store must not be reached for an invalid column")
			return 0, nil, nil
		},
	}
	e := newTestExecutor(t, store)

	_, err := e.Execute(context.Background(), d, &types.DatasetQuery{
		Filters: []types.Filter{{Column: "not_a_real_column", Op: types.OpEq, Value: 1}},
	})
	var ice *InvalidColumnError
	require.ErrorAs(t, err, &ice)
}

func TestQuery_Executor_StoreErrorAbortsRequest(t *testing.T) {
	t.Parallel()

	d := testDescriptor(t)
	storeErr := errors.New("connection refused")
	store := &mockStore{
		QueryPageFunc: func(ctx context.Context, st *Statement) (int64, []types.Row, error) {
			return 0, nil, storeErr
		},
	}
	e := newTestExecutor(t, store)

	slice, err := e.Execute(context.Background(), d, &types.DatasetQuery{})
	require.Nil(t, slice)
	require.ErrorIs(t, err, storeErr)
	require.Contains(t, err.Error(), "pitching_outings")
}

func TestQuery_Executor_RejectsOutOfRangeLimit(t *testing.T) {
	t.Parallel()

	d := testDescriptor(t)
	e := newTestExecutor(t, &mockStore{
		QueryPageFunc: func(ctx context.Context, st *Statement) (int64, []types.Row, error) {
			return 0, nil, nil
		},
	})

	_, err := e.Execute(context.Background(), d, &types.DatasetQuery{Limit: intPtr(0)})
	require.Error(t, err)
	_, err = e.Execute(context.Background(), d, &types.DatasetQuery{Limit: intPtr(types.MaxLimit + 1)})
	require.Error(t, err)
	_, err = e.Execute(context.Background(), d, &types.DatasetQuery{Offset: intPtr(-1)})
	require.Error(t, err)
}
