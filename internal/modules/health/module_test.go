package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum_bot/internal/modules/health/service"
)

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMux_Readiness(t *testing.T) {
	state := service.NewState()
	mux := NewMux(state)

	assert.Equal(t, http.StatusOK, get(t, mux, "/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, mux, "/readyz").Code)

	state.SetReady(true)
	assert.Equal(t, http.StatusOK, get(t, mux, "/readyz").Code)
}

func TestMux_Healthz(t *testing.T) {
	state := service.NewState()
	state.SetHalted(true)
	state.SetOpenPositions(3)
	state.TouchTick(time.Unix(1_700_000_000, 0))
	mux := NewMux(state)

	rec := get(t, mux, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Halted)
	assert.Equal(t, 3, resp.OpenPositions)
	assert.Equal(t, int64(1_700_000_000), resp.LastTickUnix)
	assert.False(t, resp.Ready)
}

func TestMux_Metrics(t *testing.T) {
	rec := get(t, NewMux(service.NewState()), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
