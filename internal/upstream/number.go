package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FlexDecimal decodes a JSON number, a numeric string, or null.
// Empty strings and null leave Valid false.
type FlexDecimal struct {
	Decimal decimal.Decimal
	Valid   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexDecimal) UnmarshalJSON(data []byte) error {
	f.Valid = false
	f.Decimal = decimal.Zero

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		raw = s
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse decimal %q: %w", raw, err)
	}
	f.Decimal = d
	f.Valid = true
	return nil
}

// OrZero returns the decoded value or zero when absent.
func (f FlexDecimal) OrZero() decimal.Decimal {
	if !f.Valid {
		return decimal.Zero
	}
	return f.Decimal
}

// Ptr returns a pointer to the decoded value, or nil when absent.
func (f FlexDecimal) Ptr() *decimal.Decimal {
	if !f.Valid {
		return nil
	}
	d := f.Decimal
	return &d
}
