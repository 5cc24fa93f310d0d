package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Attempts:   3,
		RetryDelay: 5 * time.Millisecond,
		Timeout:    2 * time.Second,
	}
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	client := New(testConfig(), nil)
	page, err := client.Fetch(context.Background(), srv.URL, RandomHeaders())
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "<html>ok</html>", string(page.Body))
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	client := New(testConfig(), nil)
	page, err := client.Fetch(context.Background(), srv.URL, RandomHeaders())
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(page.Body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchExhaustsRetries(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(testConfig(), nil)
	page, err := client.Fetch(context.Background(), srv.URL, RandomHeaders())
	require.Error(t, err)
	assert.Nil(t, page)
	assert.Equal(t, int32(3), hits.Load(), "no further attempts after the third")
	assert.False(t, IsClientError(err))
}

func TestFetchClientErrorIsRecognizable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := New(testConfig(), nil)
	_, err := client.Fetch(context.Background(), srv.URL, RandomHeaders())
	require.Error(t, err)
	assert.True(t, IsClientError(err))

	// The typed error survives, not colly's bare status-text error.
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestFetchSendsHeaders(t *testing.T) {
	t.Parallel()

	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h := RandomHeaders()
	h.SetReferer("https://example.com/listing")

	client := New(testConfig(), nil)
	_, err := client.Fetch(context.Background(), srv.URL, h)
	require.NoError(t, err)
	assert.NotEmpty(t, gotUA)
	assert.Equal(t, "https://example.com/listing", gotReferer)
}

func TestFetchHonorsContextCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(testConfig(), nil)
	_, err := client.Fetch(ctx, srv.URL, RandomHeaders())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRandomHeaders(t *testing.T) {
	t.Parallel()

	h := RandomHeaders()
	assert.NotEmpty(t, h["User-Agent"])
	assert.Equal(t, "https://google.com", h.Referer())
	assert.Equal(t, "1", h["DNT"])
}
