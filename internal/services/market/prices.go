package market

import (
	"context"
	"errors"

	"github.com/bobmcallan/stockdash/internal/models"
	"github.com/bobmcallan/stockdash/internal/services/etl"
)

// ErrNoPriceSource is returned when no Alpha Vantage client is configured.
var ErrNoPriceSource = errors.New("no price source configured")

// GetDailyPrices returns the daily series, oldest first, with the 20-day
// moving average. When Alpha Vantage fails, stored bars are served instead.
func (s *Service) GetDailyPrices(ctx context.Context, symbol string) ([]models.PriceBar, error) {
	bars, err := s.fetchPrices(ctx, symbol)
	if err == nil {
		return bars, nil
	}

	stored, serr := s.storage.PriceStore().GetPrices(ctx, symbol, priceHistory)
	if serr != nil || len(stored) == 0 {
		return nil, err
	}

	s.logger.Warn().Str("symbol", symbol).Int("bars", len(stored)).Err(err).Msg("Price source failed, serving stored prices")
	etl.ApplyMovingAverage(stored)
	return stored, nil
}

// loadDaily fetches the series from Alpha Vantage and upserts it into the
// price store. A failed save is logged, not returned.
func (s *Service) loadDaily(ctx context.Context, symbol string) ([]models.PriceBar, error) {
	if s.clients.AlphaVantage == nil {
		return nil, ErrNoPriceSource
	}

	bars, err := s.clients.AlphaVantage.GetDaily(ctx, symbol)
	if err != nil {
		return nil, err
	}
	etl.ApplyMovingAverage(bars)

	if len(bars) > 0 {
		if err := s.storage.PriceStore().SavePrices(ctx, bars); err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Failed to save prices")
		}
	}
	return bars, nil
}
