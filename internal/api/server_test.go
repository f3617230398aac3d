package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ticketapi/internal/config"
	"ticketapi/internal/database"
	"ticketapi/internal/messaging"
	"ticketapi/internal/middleware"
	"ticketapi/internal/repository"
	"ticketapi/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ds, err := database.Connect(context.Background(), database.Config{Driver: database.DriverMemory})
	require.NoError(t, err)

	repos, err := repository.NewRepositories(ds)
	require.NoError(t, err)

	publisher := messaging.NopPublisher{}
	return NewServerWith(&config.Config{Port: "3000"}, ds, publisher, service.NewServices(repos, publisher))
}

func TestServerTicketRoundTrip(t *testing.T) {
	router := newTestServer(t).GetRouter()

	body := `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":25.5,"silla":14}`
	req, _ := http.NewRequest(http.MethodPost, "/tickets", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req, _ = http.NewRequest(http.MethodGet, "/tickets/"+created["id"].(string), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created, fetched)
}

func TestHealthCheck(t *testing.T) {
	router := newTestServer(t).GetRouter()

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "healthy", body["database"].(map[string]any)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestServer(t).GetRouter()

	req, _ := http.NewRequest(http.MethodGet, "/tickets/count", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "ticketapi_http_requests_total"))
}

func TestRequestIDAndCORS(t *testing.T) {
	router := newTestServer(t).GetRouter()

	req, _ := http.NewRequest(http.MethodGet, "/tickets", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, "/tickets", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req, _ = http.NewRequest(http.MethodOptions, "/tickets", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCleanup(t *testing.T) {
	assert.NoError(t, newTestServer(t).Cleanup(context.Background()))
}
