package services

import (
	"errors"

	"earnlink/internal/store"

	"github.com/shopspring/decimal"
)

// settingOr reads an admin-editable earning setting, falling back to the
// configured default when the store has no value.
func settingOr(st store.Store, key, fallback string) string {
	v, err := st.GetSetting(key)
	if err != nil || v == "" {
		return fallback
	}
	return v
}

func decimalSetting(st store.Store, key, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(settingOr(st, key, fallback))
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
