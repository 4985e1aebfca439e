package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/inconshreveable/log15"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/lane-runner/game/service"
)

const (
	DefaultTickRate = 30
	MaxTickRate     = 120

	DefaultSweepInterval = time.Hour
	DefaultSessionMaxAge = 24 * time.Hour
)

var ErrInvalidTickRate = errors.New("invalid tick rate")

var logger = log15.New("module", "runner")

// Publisher receives every live frame
type Publisher interface {
	BroadcastFrame(update *service.FrameUpdate)
}

// Sweeper removes sessions nobody has touched for maxAge
type Sweeper interface {
	CleanupExpiredSessions(maxAge time.Duration) int
}

// Options configures a Runner. Zero values pick the defaults.
type Options struct {
	TickRate      int
	SweepInterval time.Duration
	SessionMaxAge time.Duration
}

// Runner drives live sessions at a fixed rate and expires idle sessions
type Runner struct {
	svc     service.GameService
	pub     Publisher
	sweeper Sweeper
	opts    Options
	dt      float64

	frames atomic.Uint64
}

// New creates a runner. pub and sweeper may be nil.
func New(svc service.GameService, pub Publisher, sweeper Sweeper, opts Options) (*Runner, error) {
	if opts.TickRate == 0 {
		opts.TickRate = DefaultTickRate
	}
	if opts.TickRate < 1 || opts.TickRate > MaxTickRate {
		return nil, fmt.Errorf("%w: %d, want 1..%d", ErrInvalidTickRate, opts.TickRate, MaxTickRate)
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.SessionMaxAge <= 0 {
		opts.SessionMaxAge = DefaultSessionMaxAge
	}

	return &Runner{
		svc:     svc,
		pub:     pub,
		sweeper: sweeper,
		opts:    opts,
		dt:      1.0 / float64(opts.TickRate),
	}, nil
}

// Dt returns the fixed frame delta in seconds
func (r *Runner) Dt() float64 {
	return r.dt
}

// Frames returns how many frames the runner has stepped
func (r *Runner) Frames() uint64 {
	return r.frames.Load()
}

// Run ticks live sessions and sweeps idle ones until ctx is done
func (r *Runner) Run(ctx context.Context) error {
	logger.Info("runner started", "rate", r.opts.TickRate, "dt", r.dt, "sweep", r.opts.SweepInterval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.tickLoop(ctx)
	})
	if r.sweeper != nil {
		g.Go(func() error {
			return r.sweepLoop(ctx)
		})
	}

	err := g.Wait()
	logger.Info("runner stopped", "frames", r.frames.Load())
	return err
}

func (r *Runner) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(r.opts.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Step(ctx); err != nil {
				// a faulted session must not stop the others
				logger.Error("live tick failed", "sessions", len(multierr.Errors(err)), "err", err)
			}
		}
	}
}

func (r *Runner) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Step advances every live session by one frame and publishes the results
func (r *Runner) Step(ctx context.Context) error {
	updates, err := r.svc.TickLive(ctx, r.dt)
	r.frames.Add(1)
	if r.pub != nil {
		for _, update := range updates {
			r.pub.BroadcastFrame(update)
		}
	}
	return err
}

// Sweep removes expired sessions and reports how many went
func (r *Runner) Sweep() int {
	if r.sweeper == nil {
		return 0
	}
	removed := r.sweeper.CleanupExpiredSessions(r.opts.SessionMaxAge)
	if removed > 0 {
		logger.Info("swept idle sessions", "removed", removed)
	}
	return removed
}
