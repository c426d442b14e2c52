package remote

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Monitor periodically probes the remote store and reports connectivity
// transitions. The offline→online edge is what drives reconciliation-queue
// draining in the synced store.
type Monitor struct {
	ping     func(context.Context) error
	interval time.Duration
	onChange func(online bool)
	logger   *slog.Logger

	mu     sync.Mutex
	online bool
}

// NewMonitor creates a Monitor that calls onChange on every connectivity
// transition. The monitor starts out offline; the first successful probe
// produces an online transition.
func NewMonitor(ping func(context.Context) error, interval time.Duration, onChange func(bool), logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{ping: ping, interval: interval, onChange: onChange, logger: logger}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Run probes until ctx is canceled. It probes once immediately so startup
// does not wait a full interval for the first state.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	err := m.ping(probeCtx)
	cancel()
	online := err == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		m.logger.Info("remote store reachable")
	} else {
		m.logger.Warn("remote store unreachable", "err", err)
	}
	if m.onChange != nil {
		m.onChange(online)
	}
}
