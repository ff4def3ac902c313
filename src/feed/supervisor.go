package feed

import (
	"context"
	"sync/atomic"
	"time"

	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"
)

const DefaultReconnectDelay = 5 * time.Second

// Supervisor keeps one upstream alive: whenever it drops, wait a flat delay
// and run it again, until the context ends. Only one attempt is ever in flight.
type Supervisor struct {
	Upstream interfaces.IUpstream
	Delay    time.Duration
	Logger   *logger.Logger

	kick     chan struct{}
	attempts atomic.Int64
}

// -----------------------------------------------------------------------------

func NewSupervisor(upstream interfaces.IUpstream, delay time.Duration, log *logger.Logger) *Supervisor {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Supervisor{
		Upstream: upstream,
		Delay:    delay,
		Logger:   log,
		kick:     make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------

// Run blocks until ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		// Drop a kick left over from an earlier wait.
		select {
		case <-s.kick:
		default:
		}

		n := s.attempts.Add(1)
		err := s.Upstream.Run(ctx)
		if ctx.Err() != nil {
			s.Logger.Info("Supervisor stopped after %d attempt(s)", n)
			return nil
		}

		if err != nil {
			s.Logger.Warning("Upstream disconnected: %v. Reconnecting in %s", err, s.Delay)
		} else {
			s.Logger.Warning("Upstream closed. Reconnecting in %s", s.Delay)
		}

		timer := time.NewTimer(s.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.Logger.Info("Supervisor stopped after %d attempt(s)", n)
			return nil
		case <-timer.C:
		case <-s.kick:
			timer.Stop()
			s.Logger.Info("Manual reconnect requested")
		}
	}
}

// -----------------------------------------------------------------------------

// Reconnect cuts the current wait short. It does nothing unless the upstream
// is disconnected and reports whether a reconnect was scheduled.
func (s *Supervisor) Reconnect() bool {
	if s.Upstream.State() != models.Disconnected {
		return false
	}
	select {
	case s.kick <- struct{}{}:
	default:
	}
	return true
}

// -----------------------------------------------------------------------------

func (s *Supervisor) State() models.UpstreamState {
	return s.Upstream.State()
}

// Attempts counts connection attempts since start.
func (s *Supervisor) Attempts() int64 {
	return s.attempts.Load()
}
