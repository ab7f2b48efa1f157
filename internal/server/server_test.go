package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemagen/internal/codegen"
	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/logger"
	"github.com/koustreak/schemagen/internal/pipeline"
	"github.com/koustreak/schemagen/internal/schema"
	"github.com/koustreak/schemagen/internal/typemap"
)

type fakeRenderer struct {
	calls int
	err   error
}

func (f *fakeRenderer) Render(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	info := &schema.SchemaInfo{
		Name:    "spring",
		Dialect: database.DriverMySQL,
		Tables: []*schema.TableInfo{{
			Name: "user_account",
			Columns: []schema.ColumnInfo{
				{Name: "id", DataType: "int", Position: 1},
				{Name: "email", DataType: "varchar", Position: 2},
			},
			PrimaryKey: []string{"id"},
		}},
	}
	mapper, err := typemap.New(info.Dialect, nil)
	if err != nil {
		return nil, err
	}
	model, err := codegen.BuildModel(info, mapper, opts.Package)
	if err != nil {
		return nil, err
	}
	arts, err := codegen.Render(model)
	if err != nil {
		return nil, err
	}
	return &pipeline.Result{Schema: info, Model: model, Artifacts: arts}, nil
}

func newServer(t *testing.T, r *fakeRenderer, refresh bool) *httptest.Server {
	t.Helper()
	s := New(r, pipeline.Options{Package: "dbgen"}, nil)
	if refresh {
		require.NoError(t, s.Refresh(context.Background()))
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var b bytes.Buffer
	_, err = b.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, b.String()
}

func TestHealthz(t *testing.T) {
	ts := newServer(t, &fakeRenderer{}, true)

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "spring", got["schema"])
}

func TestNoSnapshot(t *testing.T) {
	ts := newServer(t, &fakeRenderer{}, false)

	for _, path := range []string{"/healthz", "/schema", "/tables", "/tables/user_account"} {
		resp, _ := get(t, ts.URL+path)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestSchema(t *testing.T) {
	ts := newServer(t, &fakeRenderer{}, true)

	resp, body := get(t, ts.URL+"/schema")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "name: spring")
	assert.Contains(t, body, "dialect: mysql")
	assert.Contains(t, body, "name: user_account")
}

func TestTables(t *testing.T) {
	ts := newServer(t, &fakeRenderer{}, true)

	resp, body := get(t, ts.URL+"/tables")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []tableSummary
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, []tableSummary{{
		Name:       "user_account",
		Record:     "UserAccount",
		File:       "user_account.go",
		Columns:    2,
		PrimaryKey: []string{"id"},
	}}, got)
}

func TestTableSource(t *testing.T) {
	ts := newServer(t, &fakeRenderer{}, true)

	resp, body := get(t, ts.URL+"/tables/user_account")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/x-go; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, codegen.Header))
	assert.Contains(t, body, "type UserAccount struct")

	resp, body = get(t, ts.URL+"/tables/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, `"kind": "not_found"`)
}

func TestRefresh(t *testing.T) {
	r := &fakeRenderer{}
	ts := newServer(t, r, true)

	resp, err := http.Post(ts.URL+"/refresh", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, r.calls)

	r.err = errs.New(errs.ErrKindConnectionFailed, "cannot connect to mysql://root@127.0.0.1:3306")
	resp, err = http.Post(ts.URL+"/refresh", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// the previous snapshot keeps serving
	resp, _ = get(t, ts.URL+"/tables/user_account")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAccessLog(t *testing.T) {
	out := &lockedBuffer{}
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: out})
	r := &fakeRenderer{err: errs.New(errs.ErrKindTimeout, "introspection timed out")}
	s := New(r, pipeline.Options{Package: "dbgen"}, log)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/refresh", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var warn, access map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &warn))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))

	assert.Equal(t, "preview refresh failed", warn["message"])
	assert.Equal(t, "http request", access["message"])
	assert.Equal(t, "/refresh", access["path"])
	assert.Equal(t, float64(http.StatusGatewayTimeout), access["status"])
	assert.NotEmpty(t, access["request_id"])
	assert.Equal(t, access["request_id"], warn["request_id"])
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := New(&fakeRenderer{}, pipeline.Options{Package: "dbgen"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(errs.ErrKindSchemaNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(errs.ErrKindUnsupportedType))
	assert.Equal(t, http.StatusGatewayTimeout, statusOf(errs.ErrKindTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errs.ErrKindUnknown))
}
