package health

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is how often the monitor pings the database.
const DefaultInterval = 10 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatusSetter is satisfied by *Server.
type StatusSetter interface {
	SetServing(ok bool)
}

// Monitor periodically pings the database and reports the result.
type Monitor struct {
	DB       Pinger
	Status   StatusSetter
	Interval time.Duration
	Logger   *slog.Logger

	serving *bool
}

// Check pings once and updates the status. Reports whether the database answered.
func (m *Monitor) Check(ctx context.Context) bool {
	timeout := m.interval()
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := m.DB.PingContext(pctx)
	ok := err == nil

	// логируем только смену состояния, чтобы не шуметь каждые N секунд
	if m.serving == nil || *m.serving != ok {
		if ok {
			m.Logger.Info("database reachable, serving")
		} else {
			m.Logger.Error("database unreachable, not serving", "error", err)
		}
	}
	m.serving = &ok

	m.Status.SetServing(ok)
	return ok
}

// Start runs an initial check and then one per interval until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.Logger.Info("starting health monitor", "interval", m.interval())

	go func() {
		m.Check(ctx)

		ti := time.NewTicker(m.interval())
		defer ti.Stop()

		for {
			select {
			case <-ti.C:
				m.Check(ctx)
			case <-ctx.Done():
				m.Logger.Info("health monitor stopped", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (m *Monitor) interval() time.Duration {
	if m.Interval <= 0 {
		return DefaultInterval
	}
	return m.Interval
}
