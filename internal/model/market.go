package model

import (
	"fmt"
	"strings"
)

// MarketID identifies one of the wholesale market families the household trades on.
// Keep the short codes stable; they are used in CSV output and the database.
type MarketID int

const (
	DayAhead MarketID = iota
	IntradayAuction
	IntradayContinuous

	NumMarkets = 3
)

// Markets lists all market families in a fixed order.
var Markets = [NumMarkets]MarketID{DayAhead, IntradayAuction, IntradayContinuous}

func (m MarketID) String() string {
	switch m {
	case DayAhead:
		return "DA"
	case IntradayAuction:
		return "IA"
	case IntradayContinuous:
		return "IC"
	default:
		return fmt.Sprintf("MarketID(%d)", int(m))
	}
}

// Name is the human-friendly market name.
func (m MarketID) Name() string {
	switch m {
	case DayAhead:
		return "day-ahead"
	case IntradayAuction:
		return "intraday-auction"
	case IntradayContinuous:
		return "intraday-continuous"
	default:
		return m.String()
	}
}

func (m MarketID) Valid() bool { return m >= 0 && m < NumMarkets }

// ParseMarketID accepts either the short code ("DA") or the name ("day-ahead").
func ParseMarketID(s string) (MarketID, error) {
	s = strings.TrimSpace(s)
	for _, m := range Markets {
		if strings.EqualFold(s, m.String()) || strings.EqualFold(s, m.Name()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown market %q", s)
}

func (m MarketID) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid market id %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *MarketID) UnmarshalText(b []byte) error {
	id, err := ParseMarketID(string(b))
	if err != nil {
		return err
	}
	*m = id
	return nil
}

// PriceVector holds one price per market family, indexed by MarketID.
// Prices are per unit of energy (€/kWh after scaling).
type PriceVector [NumMarkets]float64

func (p PriceVector) Get(m MarketID) float64 { return p[m] }
