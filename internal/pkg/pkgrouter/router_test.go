package pkgrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func TestRouter_Success(t *testing.T) {
	r := NewRouter(fixedID("req-1"))
	r.GET("/ping", func(context.Context, *http.Request) (any, error) {
		return map[string]string{"pong": "ok"}, nil
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, map[string]any{"pong": "ok"}, body["data"])
}

func TestRouter_ErrorMapping(t *testing.T) {
	r := NewRouter(fixedID("req-2"))
	r.GET("/limited", func(context.Context, *http.Request) (any, error) {
		return nil, pkgerror.NewBusiness("slow down", pkgerror.CodeRateLimited).WithMeta("retry_after_seconds", "3")
	})
	r.GET("/boom", func(context.Context, *http.Request) (any, error) {
		return nil, errors.New("db exploded")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db exploded")
}

func TestRouter_KeepsIncomingRequestID(t *testing.T) {
	r := NewRouter(fixedID("generated"))
	r.GET("/ping", func(context.Context, *http.Request) (any, error) { return "ok", nil })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "from-client")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "from-client", rec.Header().Get(HeaderRequestID))
}
