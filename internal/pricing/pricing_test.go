package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tranvd/cinebook/internal/domain"
)

func TestPrice(t *testing.T) {
	engine := New(DefaultConfig())

	tests := []struct {
		name     string
		base     decimal.Decimal
		seatType domain.SeatType
		day      time.Weekday
		want     decimal.Decimal
	}{
		{
			name:     "normal seat on a weekday has no modifiers",
			base:     decimal.NewFromInt(100000),
			seatType: domain.SeatTypeNormal,
			day:      time.Tuesday,
			want:     decimal.NewFromInt(100000),
		},
		{
			name:     "vip seat on sunday adds both modifiers",
			base:     decimal.NewFromInt(100000),
			seatType: domain.SeatTypeVip,
			day:      time.Sunday,
			want:     decimal.NewFromInt(130000),
		},
		{
			name:     "couple seat on friday",
			base:     decimal.NewFromInt(100000),
			seatType: domain.SeatTypeCouple,
			day:      time.Friday,
			want:     decimal.NewFromInt(140000),
		},
		{
			name:     "unknown seat type falls back to the base price",
			base:     decimal.NewFromInt(100000),
			seatType: domain.SeatType("RECLINER"),
			day:      time.Monday,
			want:     decimal.NewFromInt(100000),
		},
		{
			name:     "price below the band is clamped up",
			base:     decimal.NewFromInt(10000),
			seatType: domain.SeatTypeNormal,
			day:      time.Monday,
			want:     decimal.NewFromInt(30000),
		},
		{
			name:     "price above the band is clamped down",
			base:     decimal.NewFromInt(500000),
			seatType: domain.SeatTypeVip,
			day:      time.Saturday,
			want:     decimal.NewFromInt(250000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Price(tt.base, tt.seatType, tt.day)

			assert.True(t, tt.want.Equal(got), "Price() = %s, want %s", got, tt.want)
		})
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	engine := New(DefaultConfig())
	base := decimal.NewFromInt(100000)

	first := engine.Price(base, domain.SeatTypeVip, time.Sunday)
	second := engine.Price(base, domain.SeatTypeVip, time.Sunday)

	assert.True(t, first.Equal(second))
}
