package helpers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithRandomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.NotEmpty(t, r.Header.Get("Referer"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello, World!</body></html>"))
	}))
	defer server.Close()

	reader, err := FetchWithRandomHeaders(context.Background(), NewHTTPClient(5*time.Second), server.URL)
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Hello, World!")
}

func TestFetchWithRandomHeadersNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "Café" in ISO-8859-1
		w.Write([]byte("<html><body>Caf\xe9</body></html>"))
	}))
	defer server.Close()

	reader, err := FetchWithRandomHeaders(context.Background(), NewHTTPClient(5*time.Second), server.URL)
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Café")
}

func TestFetchWithRandomHeadersError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := FetchWithRandomHeaders(context.Background(), NewHTTPClient(5*time.Second), server.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")

	serverRateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serverRateLimited.Close()

	_, err = FetchWithRandomHeaders(context.Background(), NewHTTPClient(5*time.Second), serverRateLimited.URL)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Contains(t, err.Error(), "retry after 60")
}

func TestFetchWithRandomHeadersTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := FetchWithRandomHeaders(ctx, NewHTTPClient(5*time.Second), server.URL)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchWithRandomHeadersInvalidURL(t *testing.T) {
	_, err := FetchWithRandomHeaders(context.Background(), NewHTTPClient(time.Second), "http://invalid.url.that.does.not.exist")
	assert.Error(t, err)
}
