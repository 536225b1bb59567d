package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout bounds each fetch cycle. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.timeout = d
	}
}

// Aggregator fetches the current observation and the forecast concurrently
// and commits both into a single view-model slot.
type Aggregator struct {
	source  Source
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	params Params
	active bool
	state  ViewModel
	seq    uint64
	cancel context.CancelFunc

	subs    map[int]chan ViewModel
	nextSub int
}

// NewAggregator creates an Aggregator. The initial view-model is loading.
func NewAggregator(source Source, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		source: source,
		logger: logger,
		state:  ViewModel{IsLoading: true},
		subs:   make(map[int]chan ViewModel),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetParams activates the aggregator with the given inputs. It runs a fetch
// cycle on first activation and whenever any input changes; otherwise it is a
// no-op.
func (a *Aggregator) SetParams(ctx context.Context, p Params) error {
	a.mu.Lock()
	if a.active && a.params == p {
		a.mu.Unlock()
		return nil
	}
	a.params = p
	a.active = true
	a.mu.Unlock()

	return a.FetchData(ctx)
}

// Params returns the inputs of the current activation.
func (a *Aggregator) Params() Params {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

// FetchData runs one fetch cycle. A call made while another cycle is in
// flight cancels that cycle; only the newest cycle may commit.
func (a *Aggregator) FetchData(ctx context.Context) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.seq++
	seq := a.seq
	params := a.params

	var cycleCtx context.Context
	var cancel context.CancelFunc
	if a.timeout > 0 {
		cycleCtx, cancel = context.WithTimeout(ctx, a.timeout)
	} else {
		cycleCtx, cancel = context.WithCancel(ctx)
	}
	a.cancel = cancel

	a.state.IsLoading = true
	a.publishLocked()
	a.mu.Unlock()
	defer cancel()

	logger := a.logger.With(
		"cycle", uuid.NewString(),
		"observation", params.ObservationName,
		"forecast", params.ForecastName,
	)
	logger.Debug("fetch cycle started")
	started := time.Now()

	var (
		obs ObservationRecord
		fc  ForecastRecord
	)
	g, gctx := errgroup.WithContext(cycleCtx)
	g.Go(func() error {
		r, err := a.source.FetchObservation(gctx, params.CredentialKey, params.ObservationName)
		if err != nil {
			return fmt.Errorf("fetch observation %q: %w", params.ObservationName, err)
		}
		obs = r
		return nil
	})
	g.Go(func() error {
		r, err := a.source.FetchForecast(gctx, params.CredentialKey, params.ForecastName)
		if err != nil {
			return fmt.Errorf("fetch forecast %q: %w", params.ForecastName, err)
		}
		fc = r
		return nil
	})
	err := g.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.seq {
		logger.Debug("fetch cycle superseded", "error", err)
		return ErrSuperseded
	}
	a.cancel = nil

	if err != nil {
		// Keep the last committed fields; only clear the loading flag.
		a.state.IsLoading = false
		a.publishLocked()
		logger.Warn("fetch cycle failed", "error", err, "elapsed", time.Since(started))
		return err
	}

	a.state = Merge(obs, fc)
	a.publishLocked()
	logger.Info("fetch cycle committed",
		"location", obs.LocationName,
		"temperature", obs.Temperature,
		"weatherCode", fc.WeatherCode,
		"elapsed", time.Since(started),
	)
	return nil
}

// Snapshot returns the current view-model.
func (a *Aggregator) Snapshot() ViewModel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Subscribe returns a channel that receives the view-model after every state
// change. Slow readers only see the latest value. The returned func stops the
// subscription and closes the channel.
func (a *Aggregator) Subscribe() (<-chan ViewModel, func()) {
	ch := make(chan ViewModel, 1)

	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	ch <- a.state
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
			close(ch)
		})
	}
}

// publishLocked must be called with a.mu held.
func (a *Aggregator) publishLocked() {
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- a.state
	}
}

// IsSuperseded reports whether err came from a replaced fetch cycle.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
