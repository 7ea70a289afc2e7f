package goal

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lowaak/fitkage/fitkage-app/internal/go_func_utils"
)

const (
	DefaultAttemptTimeout  = 5 * time.Second
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 250 * time.Millisecond
)

// Result is delivered exactly once per FetchAsync call.
type Result struct {
	Goal int
	Err  error
}

type FetcherConfig struct {
	// AttemptTimeout bounds each individual store call.
	AttemptTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries      int
	InitialInterval time.Duration
}

func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		AttemptTimeout:  DefaultAttemptTimeout,
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
	}
}

// Fetcher wraps a Store with per-attempt timeouts and exponential backoff.
// Not-found and malformed values are not retried.
type Fetcher struct {
	store  Store
	cfg    FetcherConfig
	logger *log.Logger
}

func NewFetcher(store Store, cfg FetcherConfig, logger *log.Logger) *Fetcher {
	if store == nil {
		panic("Fetcher: store cannot be nil")
	}
	if logger == nil {
		panic("Fetcher: logger cannot be nil")
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	return &Fetcher{store: store, cfg: cfg, logger: logger}
}

func (f *Fetcher) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.cfg.InitialInterval
	exp.MaxInterval = 10 * f.cfg.InitialInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.cfg.MaxRetries)), ctx)
}

// Fetch blocks until a goal is read, a permanent error occurs, retries run out,
// or ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, userID string) (int, error) {
	var goal int
	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.AttemptTimeout)
		defer cancel()
		g, err := f.store.StepGoal(attemptCtx, userID)
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		goal = g
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Printf("Goal: attempt %d for %s failed: %v (retrying in %v)", attempt, userID, err, wait)
	}
	if err := backoff.RetryNotify(op, f.newBackOff(ctx), notify); err != nil {
		f.logger.Printf("Goal: fetch for %s failed after %d attempt(s): %v", userID, attempt, err)
		return 0, err
	}
	f.logger.Printf("Goal: fetched %d for %s", goal, userID)
	return goal, nil
}

// FetchAsync runs Fetch on a new goroutine and calls done with its result.
// done is called exactly once, even if the store panics.
func (f *Fetcher) FetchAsync(ctx context.Context, userID string, done func(Result)) {
	if done == nil {
		panic("FetchAsync: done callback cannot be nil")
	}
	var once sync.Once
	deliver := func(r Result) { once.Do(func() { done(r) }) }

	go_func_utils.SafeGo(f.logger, func() {
		defer func() {
			if r := recover(); r != nil {
				deliver(Result{Err: errors.New("goal fetch panicked")})
				panic(r)
			}
		}()
		g, err := f.Fetch(ctx, userID)
		deliver(Result{Goal: g, Err: err})
	})
}
