package workers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"tournament-arena-system/utils"
)

// ConnectivityMonitor probes an HTTP endpoint on a fixed interval and
// publishes a live online/offline boolean. The registration retry loop
// observes it while attempts are in flight.
type ConnectivityMonitor struct {
	ProbeURL   string
	Interval   time.Duration
	HTTPClient *http.Client

	state *utils.StateHolder[bool]
	last  *bool
}

func NewConnectivityMonitor() *ConnectivityMonitor {
	probeURL := os.Getenv("NETWORK_PROBE_URL")
	if probeURL == "" {
		probeURL = "https://www.gstatic.com/generate_204"
	}
	m := &ConnectivityMonitor{
		ProbeURL: probeURL,
		Interval: 5 * time.Second,
		HTTPClient: &http.Client{
			Timeout: 3 * time.Second,
		},
		state: utils.NewStateHolder[bool](),
	}
	// Assume online until the first probe says otherwise.
	m.state.Set(true)
	return m
}

// Run probes until the context is cancelled.
func (m *ConnectivityMonitor) Run(ctx context.Context) {
	log.Println("Starting connectivity monitor...")
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Connectivity monitor stopped.")
			return
		case <-ticker.C:
			online := m.probe(ctx)
			if m.last == nil || *m.last != online {
				if online {
					log.Println("[NET] connectivity restored")
				} else {
					log.Println("[NET] connectivity lost")
				}
				m.state.Set(online)
				m.last = &online
			}
		}
	}
}

func (m *ConnectivityMonitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ProbeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// Online reports the last probed state.
func (m *ConnectivityMonitor) Online() bool {
	v, _ := m.state.Get()
	return v
}

// Subscribe registers a listener for connectivity changes; the current
// state is replayed immediately. The returned function unsubscribes.
func (m *ConnectivityMonitor) Subscribe(fn func(bool)) func() {
	return m.state.Subscribe(fn)
}
