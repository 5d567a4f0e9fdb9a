package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vdgsa/rental-backend/domains/inventory/be/repo"
	"github.com/vdgsa/rental-backend/domains/inventory/be/service"
	"github.com/vdgsa/rental-backend/platform/go/persistence/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := service.New(repo.NewMemory(memory.NewStore()))
	h := New(svc, nil, zaptest.NewLogger(t))

	r := chi.NewRouter()
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateAndGetViol(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/inventory/viols", `{"size":"bass","strings":6,"maker":"Jane Dowland"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "/api/v1/inventory/viols/1", resp.Header.Get("Location"))

	var created apiItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, int64(1), created.VdgsaNumber)
	require.Equal(t, "new", created.Status)

	resp = doJSON(t, srv, http.MethodGet, "/inventory/viols/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got apiItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Jane Dowland", got.Maker)
}

func TestCreateRejectsUnknownSize(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/inventory/viols", `{"size":"gigantic"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "application/problem+json")

	var problem struct {
		Type   string `json:"type"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	require.Equal(t, http.StatusBadRequest, problem.Status)
	require.Contains(t, problem.Detail, "size")
}

func TestCreateRejectsUnknownBodyField(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/inventory/bows", `{"size":"treble","colour":"brown"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMissingItemIsNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/inventory/viols/42", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAttachSizeMismatchIsUnprocessable(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/inventory/viols", `{"size":"treble"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, srv, http.MethodPost, "/inventory/viols/1/available", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/inventory/bows", `{"size":"bass"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, srv, http.MethodPost, "/inventory/bows/1/available", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/inventory/bows/1/attach", `{"viol_id":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRetireThenRetireAgainConflicts(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/inventory/cases", `{"size":"tenor"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/inventory/cases/1/retire", `{"reason":"cracked shell"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/inventory/cases/1/retire", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListFilterValidation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/inventory/viols?filter=bogus", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/inventory/viols?filter=available", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []apiItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Empty(t, items)
}
