package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/vinayprograms/finserve/errors"
)

type capturedRequest struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   []byte
}

func newRESTServer(t *testing.T, status int, response string) (*RESTSource, *capturedRequest) {
	t.Helper()
	var got capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.Query()
		got.header = r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	src, err := NewRESTSource(RESTConfig{BaseURL: srv.URL + "/rest/v1/", APIKey: "k3y"})
	require.NoError(t, err)
	return src, &got
}

func TestRESTSource_SelectAll(t *testing.T) {
	src, got := newRESTServer(t, http.StatusOK, `[{"id":2,"created_at":"b"},{"id":1,"created_at":"a"}]`)

	recs, err := src.SelectAll(context.Background(), "transactions")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID())

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/rest/v1/transactions", got.path)
	assert.Equal(t, []string{"*"}, got.query["select"])
	assert.Equal(t, []string{"created_at.desc"}, got.query["order"])
	assert.Equal(t, "k3y", got.header.Get("apikey"))
	assert.Equal(t, "Bearer k3y", got.header.Get("Authorization"))
}

func TestRESTSource_SelectOne(t *testing.T) {
	src, got := newRESTServer(t, http.StatusOK, `[{"id":1,"data":{"balance":500}}]`)

	rec, err := src.SelectOne(context.Background(), "client_data", "1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"eq.1"}, got.query["id"])
	assert.Contains(t, rec, "data")
}

func TestRESTSource_SelectOneEmpty(t *testing.T) {
	src, _ := newRESTServer(t, http.StatusOK, `[]`)

	rec, err := src.SelectOne(context.Background(), "settings", "1")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRESTSource_Insert(t *testing.T) {
	src, got := newRESTServer(t, http.StatusCreated, `[{"id":9,"name":"Sam"}]`)

	rec, err := src.Insert(context.Background(), "users", Record{"name": "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "9", rec.ID())
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "return=representation", got.header.Get("Prefer"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(got.body, &sent))
	assert.Equal(t, "Sam", sent["name"])
}

func TestRESTSource_UpdateDelete(t *testing.T) {
	src, got := newRESTServer(t, http.StatusNoContent, ``)

	require.NoError(t, src.Update(context.Background(), "retirement_settings", "1", Record{"rate401k": 12}))
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, []string{"eq.1"}, got.query["id"])

	require.NoError(t, src.Delete(context.Background(), "users", "3"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, []string{"eq.3"}, got.query["id"])
}

func TestRESTSource_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		code   ferrors.ErrorCode
	}{
		{http.StatusUnauthorized, ferrors.ErrCodeUnauthorized},
		{http.StatusForbidden, ferrors.ErrCodeForbidden},
		{http.StatusNotFound, ferrors.ErrCodeNotFound},
		{http.StatusTooManyRequests, ferrors.ErrCodeQuotaExceeded},
		{http.StatusBadRequest, ferrors.ErrCodeRemoteQuery},
		{http.StatusServiceUnavailable, ferrors.ErrCodeUnavailable},
	}
	for _, tt := range tests {
		src, _ := newRESTServer(t, tt.status, `{"message":"nope"}`)
		_, err := src.SelectAll(context.Background(), "users")
		assert.True(t, ferrors.Is(err, tt.code), "status %d: got %v", tt.status, err)
		assert.Equal(t, "users", ferrors.AsStructured(err).(*ferrors.Error).Resource())
	}
}

func TestRESTSource_MalformedBody(t *testing.T) {
	src, _ := newRESTServer(t, http.StatusOK, `{not json`)
	_, err := src.SelectAll(context.Background(), "users")
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeRemoteQuery))
}

func TestRESTSource_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	src, err := NewRESTSource(RESTConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = src.SelectAll(context.Background(), "users")
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeTimeout), "got %v", err)
}

func TestNewRESTSource_RequiresBaseURL(t *testing.T) {
	_, err := NewRESTSource(RESTConfig{})
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidInput))
}
