package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c, err := New(Options{})
	require.NoError(t, err)

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "ok")
	assert.Contains(t, resp.ContentType, "text/html")

	doc, err := resp.Document()
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("body").Text())
}

// TestClientRetries verifies 5xx answers are retried and the eventual
// success is returned.
func TestClientRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c, err := New(Options{
		MaxRetries: 3,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
	})
	require.NoError(t, err)

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(resp.Body))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, c.Stats().Requests)
}

func TestClientExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Options{
		MaxRetries: 2,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, c.Stats().Requests)
}

// TestClientProxyRejection pins the no-retry rule for 403/407 and the
// tunnel counter behind it.
func TestClientProxyRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(Options{MaxRetries: 3, BackoffMin: time.Millisecond})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy rejected request")

	stats := c.Stats()
	assert.Equal(t, 1, stats.Requests)
	assert.Equal(t, 1, stats.Tunnel)
}

func TestClientNotFoundDoesNotRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(Options{MaxRetries: 3, BackoffMin: time.Millisecond})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestProxyURL(t *testing.T) {
	p := &Proxy{Host: "proxy.example", Port: "3128", User: "u", Password: "p"}
	u, err := p.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://u:p@proxy.example:3128", u.String())

	bare := &Proxy{Host: "proxy.example"}
	u, err = bare.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.example", u.String())

	_, err = (&Proxy{}).URL()
	assert.Error(t, err)
}

func TestSnapshotProxyBroken(t *testing.T) {
	// No traffic: never the proxy's fault.
	assert.False(t, Snapshot{}.ProxyBroken(10))

	// Every request failed.
	all := Snapshot{Requests: 10, Timeouts: 10}
	assert.True(t, all.ProxyBroken(0))
	assert.True(t, all.ProxyBroken(100))

	// Mixed traffic below the threshold is fine.
	mixed := Snapshot{Requests: 100, Timeouts: 5, Tunnel: 3}
	assert.False(t, mixed.ProxyBroken(10))

	// Mixed traffic past the threshold is not.
	assert.True(t, mixed.ProxyBroken(7))
}

func TestStatsCountsTunnelStatuses(t *testing.T) {
	var s Stats
	s.record(200, nil)
	s.record(403, nil)
	s.record(407, nil)

	snap := s.snapshot()
	assert.Equal(t, 3, snap.Requests)
	assert.Equal(t, 2, snap.Tunnel)
	assert.Equal(t, 2, snap.Failures())
}
