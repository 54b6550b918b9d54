package xray

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	return NewClient(url,
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		WithMaxTries(3),
		WithLogger(zap.NewNop().Sugar()),
	)
}

func writeJUnit(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<testsuites><testsuite name="e2e"/></testsuites>`), 0o644))
	return path
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, authenticatePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var creds map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, map[string]string{"client_id": "id", "client_secret": "secret"}, creds)

		_, _ = io.WriteString(w, `"tok-123"`)
	}))
	defer srv.Close()

	token, err := newTestClient(srv.URL).Authenticate(t.Context(), "id", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Authenticate(t.Context(), "id", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, calls.Load())
}

func TestAuthenticateEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `""`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Authenticate(t.Context(), "id", "secret")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestAuthenticateUnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Authenticate(t.Context(), "id", "wrong")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "bad credentials")
	assert.Equal(t, int32(1), calls.Load())
}

func TestImportJUnit(t *testing.T) {
	path := writeJUnit(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, importJUnitPath, r.URL.Path)
		assert.Equal(t, "PROJ-7", r.URL.Query().Get("testExecutionKey"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "results.xml", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Contains(t, string(data), `<testsuite name="e2e"/>`)

		_, _ = io.WriteString(w, `{"id":"10001","key":"PROJ-8","self":"https://jira/rest/api/2/issue/10001"}`)
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).ImportJUnit(t.Context(), "tok", path, "PROJ-7")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-8", result.Key)
	assert.Equal(t, "10001", result.ID)
	assert.JSONEq(t, `{"id":"10001","key":"PROJ-8","self":"https://jira/rest/api/2/issue/10001"}`, string(result.Raw))
}

func TestImportJUnitWithoutTestExecution(t *testing.T) {
	path := writeJUnit(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = io.WriteString(w, `{"key":"PROJ-9"}`)
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).ImportJUnit(t.Context(), "tok", path, "")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-9", result.Key)
}

func TestImportJUnitRetriesServerErrors(t *testing.T) {
	path := writeJUnit(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every attempt must carry the full file.
		_, _, err := r.FormFile("file")
		assert.NoError(t, err)

		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = io.WriteString(w, `{"key":"PROJ-10"}`)
		}
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).ImportJUnit(t.Context(), "tok", path, "")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-10", result.Key)
	assert.Equal(t, int32(3), calls.Load())
}

func TestImportJUnitGivesUpAfterMaxTries(t *testing.T) {
	path := writeJUnit(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ImportJUnit(t.Context(), "tok", path, "")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestImportJUnitMissingFile(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:0").ImportJUnit(t.Context(), "tok", filepath.Join(t.TempDir(), "nope.xml"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(http.StatusInternalServerError))
	assert.True(t, retryable(http.StatusTooManyRequests))
	assert.False(t, retryable(http.StatusBadRequest))
	assert.False(t, retryable(http.StatusForbidden))
}
