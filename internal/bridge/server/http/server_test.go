package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
	"github.com/TerraNova4697/wialon-citypoint/pkg/options"
)

type staticChecker struct {
	name  string
	ready bool
}

func (c *staticChecker) Name() string { return c.name }
func (c *staticChecker) Ready() bool  { return c.ready }

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := NewServer(options.NewHttpOptions(), log.NewNopLogger())
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzGatedByCheckers(t *testing.T) {
	wialon := &staticChecker{name: "wialon"}
	s := NewServer(options.NewHttpOptions(), log.NewNopLogger(), wialon)

	rec := get(t, s, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "wialon")

	wialon.ready = true
	rec = get(t, s, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	s := NewServer(options.NewHttpOptions(), log.NewNopLogger())
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
