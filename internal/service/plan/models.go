package plan

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Cadence is the billing interval of a subscription.
type Cadence string

const (
	CadenceMonthly      Cadence = "monthly"
	CadenceQuarterly    Cadence = "quarterly"
	CadenceSemiAnnually Cadence = "semi_annually"
	CadenceAnnually     Cadence = "annually"
)

// Months returns the subscription length for the cadence.
func (c Cadence) Months() (int, error) {
	switch c {
	case CadenceMonthly:
		return 1, nil
	case CadenceQuarterly:
		return 3, nil
	case CadenceSemiAnnually:
		return 6, nil
	case CadenceAnnually:
		return 12, nil
	}

	return 0, ErrInvalidCadence
}

func (c Cadence) Valid() bool {
	_, err := c.Months()
	return err == nil
}

// Plan represents a subscription pricing tier. Each price is nullable: a NULL
// price means the plan is not sold at that cadence.
type Plan struct {
	ID                int64               `json:"id"`
	Name              string              `json:"name"`
	PriceMonthly      decimal.NullDecimal `json:"price_monthly"`
	PriceQuarterly    decimal.NullDecimal `json:"price_quarterly"`
	PriceSemiAnnually decimal.NullDecimal `json:"price_semi_annually"`
	PriceAnnually     decimal.NullDecimal `json:"price_annually"`
	WebsiteLimit      sql.NullInt32       `json:"website_limit"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Limit returns the website quota granted by the plan. NULL counts as zero.
func (p *Plan) Limit() int32 {
	if !p.WebsiteLimit.Valid {
		return 0
	}
	return p.WebsiteLimit.Int32
}

// PriceFor returns the plan's price at the given cadence.
func (p *Plan) PriceFor(c Cadence) (decimal.Decimal, bool) {
	var price decimal.NullDecimal

	switch c {
	case CadenceMonthly:
		price = p.PriceMonthly
	case CadenceQuarterly:
		price = p.PriceQuarterly
	case CadenceSemiAnnually:
		price = p.PriceSemiAnnually
	case CadenceAnnually:
		price = p.PriceAnnually
	}

	if !price.Valid {
		return decimal.Zero, false
	}

	return price.Decimal, true
}

// HasPrice reports whether amount matches one of the plan's price points.
func (p *Plan) HasPrice(amount decimal.Decimal) bool {
	for _, price := range []decimal.NullDecimal{
		p.PriceMonthly, p.PriceQuarterly, p.PriceSemiAnnually, p.PriceAnnually,
	} {
		if price.Valid && price.Decimal.Equal(amount) {
			return true
		}
	}

	return false
}
