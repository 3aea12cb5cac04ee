package currency

import (
	"database/sql/driver"
	"errors"
)

type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
)

// Default is used when a stored row carries no currency.
const Default = CurrencyEUR

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

func ParseCurrency(s string) (Currency, error) {
	switch s {
	case CurrencyEUR.String():
		return CurrencyEUR, nil
	case CurrencyUSD.String():
		return CurrencyUSD, nil
	case CurrencyGBP.String():
		return CurrencyGBP, nil
	case CurrencyCHF.String():
		return CurrencyCHF, nil
	default:
		return "", ErrInvalidCurrency
	}
}

// ParseOrDefault falls back to the shop default instead of failing.
// Old rows may predate the currency column.
func ParseOrDefault(s string) Currency {
	c, err := ParseCurrency(s)
	if err != nil {
		return Default
	}

	return c
}
