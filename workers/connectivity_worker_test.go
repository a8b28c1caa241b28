package workers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectivityMonitor_Probe(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNoContent)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	m := NewConnectivityMonitor()
	m.ProbeURL = srv.URL

	require.True(t, m.probe(context.Background()))

	// 4xx still means the network path works; only 5xx or transport
	// failure counts as offline.
	status.Store(http.StatusNotFound)
	require.True(t, m.probe(context.Background()))

	status.Store(http.StatusBadGateway)
	require.False(t, m.probe(context.Background()))

	srv.Close()
	require.False(t, m.probe(context.Background()))
}

func TestConnectivityMonitor_StartsOnline(t *testing.T) {
	m := NewConnectivityMonitor()
	require.True(t, m.Online())

	var seen []bool
	m.Subscribe(func(v bool) { seen = append(seen, v) })
	require.Equal(t, []bool{true}, seen)
}
