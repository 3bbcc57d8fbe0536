package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bbrzycki/datasetd/internal/query"
	"github.com/bbrzycki/datasetd/internal/registry"
	"github.com/bbrzycki/datasetd/internal/store"
	"github.com/bbrzycki/datasetd/pkg/types"
)

type mockEngine struct {
	ExecuteFunc func(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error)
}

func (m *mockEngine) Execute(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error) {
	return m.ExecuteFunc(ctx, d, q)
}

type mockPinger struct {
	PingFunc func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.PingFunc(ctx) }

func testCatalog(t *testing.T) *registry.Catalog {
	t.Helper()
	catalog, err := registry.NewCatalog(&registry.Descriptor{
		DatasetID:   "pitching_outings",
		Name:        "Pitching Outings",
		Description: "One row per pitcher appearance.",
		Schema:      "marts_baseball",
		Table:       "pitching_outings",
		PrimaryKey:  []string{"player_id", "game_date"},
		Columns: []registry.Column{
			{Name: "player_id", DType: "text"},
			{Name: "player_name", DType: "text"},
			{Name: "game_date", DType: "date"},
			{Name: "season", DType: "int4"},
			{Name: "earned_runs", DType: "int4"},
			{Name: "outs_recorded", DType: "int4"},
		},
	})
	require.NoError(t, err)
	return catalog
}

func newTestServer(t *testing.T, engine Engine, pinger Pinger) *Server {
	t.Helper()
	s, err := New(slog.Default(), Config{
		Catalog:    testCatalog(t),
		Engine:     engine,
		Pinger:     pinger,
		ListenAddr: "127.0.0.1:0",
	})
	require.NoError(t, err)
	return s
}

func okEngine(t *testing.T) *mockEngine {
	t.Helper()
	return &mockEngine{
		ExecuteFunc: func(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error) {
			row, err := types.NewRow([]string{"player_name", "earned_runs"}, []any{"Shohei Ohtani", 0})
			require.NoError(t, err)
			next := int64(2)
			return &types.DatasetSlice{
				DatasetID:  d.DatasetID,
				Total:      4,
				Returned:   1,
				Offset:     *q.Offset,
				NextOffset: &next,
				Data:       []types.Row{row},
			}, nil
		},
	}
}

func mustErrResp(t *testing.T, rr *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var er types.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &er))
	return er
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, okEngine(t), nil)
	rr := doRequest(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	t.Run("ready when store answers", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, okEngine(t), &mockPinger{
			PingFunc: func(ctx context.Context) error { return nil },
		})
		rr := doRequest(t, s, http.MethodGet, "/readyz", "")
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("not ready when store unreachable", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, okEngine(t), &mockPinger{
			PingFunc: func(ctx context.Context) error { return store.ErrUnavailable },
		})
		rr := doRequest(t, s, http.MethodGet, "/readyz", "")
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestServer_ListDatasets(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, okEngine(t), nil)
	rr := doRequest(t, s, http.MethodGet, "/datasets", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var metas []types.DatasetMeta
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &metas))
	require.Len(t, metas, 1)
	require.Equal(t, "pitching_outings", metas[0].DatasetID)
	require.Len(t, metas[0].Columns, 6)
	require.Equal(t, []string{"player_id", "game_date"}, metas[0].PrimaryKey)
}

func TestServer_DescribeDataset(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, okEngine(t), nil)

	rr := doRequest(t, s, http.MethodGet, "/datasets/pitching_outings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var meta types.DatasetMeta
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &meta))
	require.Equal(t, "Pitching Outings", meta.Name)

	rr = doRequest(t, s, http.MethodGet, "/datasets/does_not_exist", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	er := mustErrResp(t, rr)
	require.Contains(t, er.Error, "does_not_exist")
	require.Equal(t, http.StatusNotFound, er.Code)
}

func TestServer_QueryDataset_Success(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, okEngine(t), nil)
	rr := doRequest(t, s, http.MethodPost, "/datasets/pitching_outings/query",
		`{"columns": ["player_name", "earned_runs"], "limit": 2}`)
	require.Equal(t, http.StatusOK, rr.Code)

	// Row keys must serialize in projection order.
	require.Contains(t, rr.Body.String(), `{"player_name":"Shohei Ohtani","earned_runs":0}`)

	var slice types.DatasetSlice
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &slice))
	require.Equal(t, int64(4), slice.Total)
	require.Equal(t, 1, slice.Returned)
	require.NotNil(t, slice.NextOffset)
	require.Equal(t, int64(2), *slice.NextOffset)
}

func TestServer_QueryDataset_EmptyBodyUsesDefaults(t *testing.T) {
	t.Parallel()

	var gotLimit, gotOffset int64
	engine := &mockEngine{
		ExecuteFunc: func(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error) {
			gotLimit, gotOffset = *q.Limit, *q.Offset
			return &types.DatasetSlice{DatasetID: d.DatasetID, Data: []types.Row{}}, nil
		},
	}
	s := newTestServer(t, engine, nil)
	rr := doRequest(t, s, http.MethodPost, "/datasets/pitching_outings/query", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(types.DefaultLimit), gotLimit)
	require.Equal(t, int64(0), gotOffset)
}

func TestServer_QueryDataset_Taxonomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		engineErr   error
		wantStatus  int
		wantInError string
	}{
		{
			name:        "invalid column",
			engineErr:   &query.InvalidColumnError{DatasetID: "pitching_outings", Columns: []string{"not_a_real_column"}},
			wantStatus:  http.StatusBadRequest,
			wantInError: "not_a_real_column",
		},
		{
			name:        "store unavailable",
			engineErr:   fmt.Errorf("dataset %q: %w", "pitching_outings", store.ErrUnavailable),
			wantStatus:  http.StatusServiceUnavailable,
			wantInError: "store unavailable",
		},
		{
			name:        "unexpected error",
			engineErr:   fmt.Errorf("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantInError: "query failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &mockEngine{
				ExecuteFunc: func(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error) {
					return nil, tt.engineErr
				},
			}
			s := newTestServer(t, engine, nil)
			rr := doRequest(t, s, http.MethodPost, "/datasets/pitching_outings/query", `{}`)
			require.Equal(t, tt.wantStatus, rr.Code)
			er := mustErrResp(t, rr)
			require.Contains(t, er.Error, tt.wantInError)
		})
	}
}

func TestServer_QueryDataset_UnknownDataset(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		ExecuteFunc: func(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error) {
			t.Fatal("engine must not run for an unknown dataset")
			return nil, nil
		},
	}
	s := newTestServer(t, engine, nil)
	rr := doRequest(t, s, http.MethodPost, "/datasets/does_not_exist/query", `{}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, mustErrResp(t, rr).Error, "does_not_exist")
}

func TestServer_QueryDataset_MalformedInput(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, okEngine(t), nil)
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "unknown field", body: `{"colums": ["player_id"]}`},
		{name: "bad op", body: `{"filters": [{"column": "season", "op": "ne", "value": 1}]}`},
		{name: "limit too large", body: `{"limit": 501}`},
		{name: "limit zero", body: `{"limit": 0}`},
		{name: "negative offset", body: `{"offset": -1}`},
		{name: "wrong filter shape", body: `{"filters": "season=2021"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := doRequest(t, s, http.MethodPost, "/datasets/pitching_outings/query", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, "body: %s", tt.body)
		})
	}
}

func TestServer_QueryDataset_BodyTooLarge(t *testing.T) {
	t.Parallel()

	s, err := New(slog.Default(), Config{
		Catalog:     testCatalog(t),
		Engine:      okEngine(t),
		ListenAddr:  "127.0.0.1:0",
		MaxBodySize: 64,
	})
	require.NoError(t, err)

	big := `{"columns": ["` + strings.Repeat("x", 256) + `"]}`
	rr := doRequest(t, s, http.MethodPost, "/datasets/pitching_outings/query", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestServer_PanicRecoveredAsJSONError(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		ExecuteFunc: func(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error) {
			panic("engine blew up")
		},
	}
	s := newTestServer(t, engine, nil)
	rr := doRequest(t, s, http.MethodPost, "/datasets/pitching_outings/query", `{}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	er := mustErrResp(t, rr)
	require.Equal(t, "internal server error", er.Error)
	require.Equal(t, http.StatusInternalServerError, er.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, okEngine(t), nil)
	rr := doRequest(t, s, http.MethodDelete, "/datasets/pitching_outings/query", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestServer_RequestIDEchoed(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, okEngine(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, "req-123", rr.Header().Get("X-Request-ID"))

	rr = doRequest(t, s, http.MethodGet, "/healthz", "")
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestServer_ConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := New(slog.Default(), Config{Engine: okEngine(t), ListenAddr: ":0"})
	require.Error(t, err)

	_, err = New(slog.Default(), Config{Catalog: testCatalog(t), ListenAddr: ":0"})
	require.Error(t, err)

	_, err = New(slog.Default(), Config{Catalog: testCatalog(t), Engine: okEngine(t)})
	require.Error(t, err)

	_, err = New(nil, Config{Catalog: testCatalog(t), Engine: okEngine(t), ListenAddr: ":0"})
	require.Error(t, err)
}
