package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-marketplace-onchain/logger"
)

func setupRouter(log *logger.Logger, h http.HandlerFunc) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestID())
	router.Use(Logger(log))
	router.Use(Recovery(log))
	router.HandleFunc("/test", h)
	return router
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	router := setupRouter(logger.Nop(), func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		assert.NotNil(t, GetLogger(r.Context()))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestRequestID_Upstream(t *testing.T) {
	router := setupRouter(logger.Nop(), func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}

func TestLogger_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("production", &buf)
	router := setupRouter(log, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test?x=1", nil))

	out := buf.String()
	assert.Contains(t, out, `"status":409`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"query":"x=1"`)
}

func TestRecovery(t *testing.T) {
	router := setupRouter(logger.Nop(), func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestGetters_OutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(req.Context()))
	assert.Nil(t, GetLogger(req.Context()))
}
