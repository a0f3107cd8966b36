// Package pricing computes seat prices at booking time. The engine is a pure
// function of its configuration, so the same inputs always yield the same
// quote regardless of when the catalog was last edited.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tranvd/cinebook/internal/domain"
)

type Config struct {
	SeatTypeModifiers map[domain.SeatType]decimal.Decimal
	WeekdayModifiers  map[time.Weekday]decimal.Decimal
	// Prices outside [MinPrice, MaxPrice] are clamped, not rejected, so the
	// catalog can be edited without violating the displayed price band.
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}

// DefaultConfig mirrors the catalog conventions: VIP and couple seats carry a
// surcharge, weekend days cost extra. Amounts are VND.
func DefaultConfig() Config {
	return Config{
		SeatTypeModifiers: map[domain.SeatType]decimal.Decimal{
			domain.SeatTypeNormal: decimal.Zero,
			domain.SeatTypeVip:    decimal.NewFromInt(20000),
			domain.SeatTypeCouple: decimal.NewFromInt(35000),
		},
		WeekdayModifiers: map[time.Weekday]decimal.Decimal{
			time.Friday:   decimal.NewFromInt(5000),
			time.Saturday: decimal.NewFromInt(10000),
			time.Sunday:   decimal.NewFromInt(10000),
		},
		MinPrice: decimal.NewFromInt(30000),
		MaxPrice: decimal.NewFromInt(250000),
	}
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Price returns the unit price for one seat:
// base + seatTypeModifier + weekdayModifier, clamped to the configured band.
func (e *Engine) Price(base decimal.Decimal, seatType domain.SeatType, day time.Weekday) decimal.Decimal {
	price := base

	if mod, ok := e.cfg.SeatTypeModifiers[seatType]; ok {
		price = price.Add(mod)
	}

	if mod, ok := e.cfg.WeekdayModifiers[day]; ok {
		price = price.Add(mod)
	}

	if price.LessThan(e.cfg.MinPrice) {
		return e.cfg.MinPrice
	}

	if price.GreaterThan(e.cfg.MaxPrice) {
		return e.cfg.MaxPrice
	}

	return price
}
