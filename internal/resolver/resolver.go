package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// CatalogSource provides the per-exchange instrument dump.
type CatalogSource interface {
	Instruments(ctx context.Context, exchange string) ([]market.Instrument, error)
}

// UniverseSource provides the equity symbol universe.
type UniverseSource interface {
	Nifty500Symbols(ctx context.Context) ([]string, error)
}

// Resolver turns configured underlyings and index universes into concrete
// instrument lists. Catalog dumps are cached per exchange for the life of
// the resolver, so a run that resolves several underlyings downloads the
// dump once.
type Resolver struct {
	catalog  CatalogSource
	universe UniverseSource
	fallback []string
	logger   *logger.Logger

	mu    sync.Mutex
	cache map[string][]market.Instrument
}

// New creates a resolver. fallback is used when the universe source fails;
// pass nil to make a universe failure fatal.
func New(catalog CatalogSource, universe UniverseSource, fallback []string, log *logger.Logger) *Resolver {
	return &Resolver{
		catalog:  catalog,
		universe: universe,
		fallback: fallback,
		logger:   log.WithField("component", "resolver"),
		cache:    make(map[string][]market.Instrument),
	}
}

// catalogFor returns the cached instrument dump for an exchange, fetching
// it on first use.
func (r *Resolver) catalogFor(ctx context.Context, exchange string) ([]market.Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[exchange]; ok {
		return cached, nil
	}

	instruments, err := r.catalog.Instruments(ctx, exchange)
	if err != nil {
		return nil, err
	}
	r.cache[exchange] = instruments
	return instruments, nil
}

// ResolveDerivatives returns every NFO future and option on the given
// underlying name. Instruments without an expiry are excluded. A non-zero
// expiry restricts the result to contracts expiring on that day.
func (r *Resolver) ResolveDerivatives(ctx context.Context, underlying string, expiry time.Time) ([]market.Instrument, error) {
	catalog, err := r.catalogFor(ctx, market.ExchangeNFO)
	if err != nil {
		return nil, fmt.Errorf("resolve derivatives for %s: %w", underlying, err)
	}

	var matched []market.Instrument
	for _, inst := range catalog {
		if !inst.IsDerivative() || inst.Expiry.IsZero() {
			continue
		}
		if !strings.EqualFold(inst.Name, underlying) {
			continue
		}
		if !expiry.IsZero() && !inst.Expiry.Equal(expiry) {
			continue
		}
		matched = append(matched, inst)
	}

	r.logger.WithFields(map[string]interface{}{
		"underlying": underlying,
		"count":      len(matched),
	}).Info("Resolved derivative instruments")

	return matched, nil
}

// ResolveEquity intersects an equity symbol list with the NSE catalog.
// A nil symbols list resolves the configured index universe; when that
// fetch fails and a fallback list is configured, the run continues on the
// fallback with a loud warning. Universe symbols missing from the catalog
// are logged and skipped. maxInstruments <= 0 means no cap.
func (r *Resolver) ResolveEquity(ctx context.Context, symbols []string, maxInstruments int) ([]market.Instrument, error) {
	if symbols == nil {
		var err error
		symbols, err = r.universe.Nifty500Symbols(ctx)
		if err != nil {
			if len(r.fallback) == 0 {
				return nil, fmt.Errorf("resolve equity universe: %w", err)
			}
			r.logger.WithError(err).WithField("fallback_count", len(r.fallback)).
				Warn("Universe fetch failed, running on degraded fallback universe")
			symbols = r.fallback
		}
	}

	if maxInstruments > 0 && len(symbols) > maxInstruments {
		symbols = symbols[:maxInstruments]
	}

	catalog, err := r.catalogFor(ctx, market.ExchangeNSE)
	if err != nil {
		return nil, fmt.Errorf("resolve equity catalog: %w", err)
	}

	// Index equities by trading symbol, keeping only the EQ series.
	bySymbol := make(map[string]market.Instrument, len(catalog))
	for _, inst := range catalog {
		if inst.InstrumentType == market.TypeEquity {
			bySymbol[inst.Symbol] = inst
		}
	}

	resolved := make([]market.Instrument, 0, len(symbols))
	var missing []string
	for _, symbol := range symbols {
		inst, ok := bySymbol[symbol]
		if !ok {
			missing = append(missing, symbol)
			continue
		}
		resolved = append(resolved, inst)
	}

	if len(missing) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"missing_count": len(missing),
			"missing":       strings.Join(missing, ","),
		}).Warn("Universe symbols not found in instrument catalog")
	}

	r.logger.WithFields(map[string]interface{}{
		"universe": len(symbols),
		"resolved": len(resolved),
	}).Info("Resolved equity instruments")

	return resolved, nil
}
