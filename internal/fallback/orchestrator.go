// Package fallback resolves an entity for a symbol through a fixed waterfall
// of sources: the local store, a bounded background refresh of that store,
// a secondary API, a static table and finally the legacy API.
package fallback

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bobmcallan/stockdash/internal/common"
)

// LookupFunc reads records for a symbol from a store or a remote source.
type LookupFunc[P, T any] func(ctx context.Context, symbol string, params P) ([]T, error)

// Config wires the tiers of one entity. Store is required; any other tier
// left nil is skipped.
type Config[P, T any] struct {
	Entity string // e.g. "financials"; also the refresh dedup suffix

	Store          LookupFunc[P, T]
	Refresh        func(ctx context.Context, symbol string) (Handle, error)
	RefreshTimeout time.Duration
	Secondary      LookupFunc[P, T]
	Static         func(symbol string, params P) []T
	Legacy         LookupFunc[P, T]

	Logger *common.Logger
}

// Orchestrator runs the waterfall for one entity.
type Orchestrator[P, T any] struct {
	cfg      Config[P, T]
	logger   *common.Logger
	inflight sync.Map // symbol:entity -> struct{}
}

// New creates an Orchestrator. A zero RefreshTimeout defaults to 15s.
func New[P, T any](cfg Config[P, T]) *Orchestrator[P, T] {
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Orchestrator[P, T]{cfg: cfg, logger: logger}
}

// Entity returns the entity name the orchestrator was configured with.
func (o *Orchestrator[P, T]) Entity() string {
	return o.cfg.Entity
}

// RefreshInFlight reports whether a refresh for symbol is still running.
func (o *Orchestrator[P, T]) RefreshInFlight(symbol string) bool {
	_, ok := o.inflight.Load(o.refreshKey(symbol))
	return ok
}

func (o *Orchestrator[P, T]) refreshKey(symbol string) string {
	return symbol + ":" + o.cfg.Entity
}

// Fetch walks the tiers in order and returns the first non-empty answer.
// It never fails: tier errors are logged and skipped, and a legacy error
// comes back as the Error of an empty result.
func (o *Orchestrator[P, T]) Fetch(ctx context.Context, symbol string, params P) Result[T] {
	log := o.logger.With().Str("entity", o.cfg.Entity).Str("symbol", symbol).Logger()
	state := StateNotStarted
	step := func(next State) {
		log.Trace().Str("from", state.String()).Str("to", next.String()).Msg("Fallback transition")
		state = next
	}

	// 1. Primary store
	if data, ok := o.lookup(ctx, "primary_store", o.cfg.Store, symbol, params); ok {
		return o.done(step, Result[T]{Data: data, Source: SourcePrimaryStore})
	}
	step(StateStoreChecked)
	last := SourcePrimaryStore

	// 2. Bounded background refresh; the store is rechecked only when the
	// refresh completed without error
	if o.cfg.Refresh != nil {
		switch o.refresh(ctx, symbol) {
		case refreshSkipped:
			step(StateRefreshSkipped)
		case refreshFailed:
			step(StateRefreshInProgress)
		case refreshCompleted:
			step(StateRefreshInProgress)
			if data, ok := o.lookup(ctx, "refreshed_store", o.cfg.Store, symbol, params); ok {
				return o.done(step, Result[T]{Data: data, Source: SourceRefreshedStore})
			}
			step(StateStoreRechecked)
			last = SourceRefreshedStore
		}
	}

	// 3. Secondary API
	if o.cfg.Secondary != nil {
		if data, ok := o.lookup(ctx, "secondary_api", o.cfg.Secondary, symbol, params); ok {
			return o.done(step, Result[T]{Data: data, Source: SourceSecondaryAPI})
		}
		step(StateSecondaryChecked)
		last = SourceSecondaryAPI
	}

	// 4. Static table
	if o.cfg.Static != nil {
		static := func(_ context.Context, symbol string, params P) ([]T, error) {
			return o.cfg.Static(symbol, params), nil
		}
		if data, ok := o.lookup(ctx, "static_fallback", static, symbol, params); ok {
			return o.done(step, Result[T]{Data: data, Source: SourceStaticFallback})
		}
		step(StateStaticChecked)
		last = SourceStaticFallback
	}

	// 5. Legacy API, returned as-is
	if o.cfg.Legacy != nil {
		data, err := o.call(ctx, o.cfg.Legacy, symbol, params)
		step(StateLegacyCalled)

		result := Result[T]{Data: data, Source: SourceLegacyAPI}
		if err != nil {
			fallbackTierErrors.WithLabelValues(o.cfg.Entity, "legacy_api").Inc()
			log.Warn().Err(err).Msg("Legacy source failed")
			result.Data = nil
			result.Error = err.Error()
		} else if len(data) == 0 {
			result.Error = o.noData(symbol)
		}
		return o.done(step, result)
	}

	log.Info().Str("last_tier", string(last)).Msg("No data from any source")
	return o.done(step, Result[T]{Source: last, Error: o.noData(symbol)})
}

func (o *Orchestrator[P, T]) noData(symbol string) string {
	return fmt.Sprintf("no %s data available for %s", o.cfg.Entity, symbol)
}

func (o *Orchestrator[P, T]) done(step func(State), r Result[T]) Result[T] {
	step(StateDone)
	fallbackResults.WithLabelValues(o.cfg.Entity, string(r.Source)).Inc()
	return r
}

// lookup runs one data tier and reports whether it produced records.
func (o *Orchestrator[P, T]) lookup(ctx context.Context, tier string, fn LookupFunc[P, T], symbol string, params P) ([]T, bool) {
	if fn == nil {
		return nil, false
	}

	data, err := o.call(ctx, fn, symbol, params)
	if err != nil {
		fallbackTierErrors.WithLabelValues(o.cfg.Entity, tier).Inc()
		o.logger.Warn().
			Str("entity", o.cfg.Entity).
			Str("symbol", symbol).
			Str("tier", tier).
			Err(err).
			Msg("Fallback tier failed")
		return nil, false
	}
	return data, len(data) > 0
}

// call invokes fn, converting a panic into an error.
func (o *Orchestrator[P, T]) call(ctx context.Context, fn LookupFunc[P, T], symbol string, params P) (data []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("entity", o.cfg.Entity).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in fallback tier")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, symbol, params)
}

type refreshOutcome int

const (
	refreshSkipped refreshOutcome = iota
	refreshFailed
	refreshCompleted
)

// refresh submits a background refresh unless one is already running for
// symbol, and waits up to RefreshTimeout for it.
func (o *Orchestrator[P, T]) refresh(ctx context.Context, symbol string) refreshOutcome {
	key := o.refreshKey(symbol)
	if _, loaded := o.inflight.LoadOrStore(key, struct{}{}); loaded {
		o.logger.Debug().Str("key", key).Msg("Refresh already in flight, skipping")
		return refreshSkipped
	}

	h, err := o.submit(ctx, symbol)
	if err != nil {
		o.inflight.Delete(key)
		fallbackTierErrors.WithLabelValues(o.cfg.Entity, "refresh").Inc()
		o.logger.Warn().Str("key", key).Err(err).Msg("Failed to submit refresh")
		return refreshFailed
	}

	// The flag outlives the waiter and is cleared when the job itself finishes
	go func() {
		<-h.Done()
		o.inflight.Delete(key)
	}()

	start := time.Now()
	if err := Wait(ctx, h, o.cfg.RefreshTimeout); err != nil {
		fallbackTierErrors.WithLabelValues(o.cfg.Entity, "refresh").Inc()
		o.logger.Warn().
			Str("key", key).
			Dur("timeout", o.cfg.RefreshTimeout).
			Err(err).
			Msg("Refresh did not complete")
		return refreshFailed
	}

	o.logger.Info().Str("key", key).Dur("elapsed", time.Since(start)).Msg("Refresh completed")
	return refreshCompleted
}

func (o *Orchestrator[P, T]) submit(ctx context.Context, symbol string) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	h, err = o.cfg.Refresh(ctx, symbol)
	if err == nil && h == nil {
		err = fmt.Errorf("refresh for %s returned no handle", symbol)
	}
	return h, err
}
