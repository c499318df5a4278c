// Package extract pulls structured fields (vendor, amount, date) out
// of uploaded receipt and invoice files so the reconciliation matcher
// has something to score against.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fields is the validated extraction result for one document.
type Fields struct {
	Vendor     string
	Amount     decimal.Decimal
	Date       time.Time
	Currency   string
	Confidence float64
}

// Transform converts the model's raw JSON object into validated
// Fields. Vendor, amount and date are required; currency and
// confidence are optional.
func Transform(raw map[string]interface{}) (*Fields, error) {
	vendor, err := getStringField(raw, "vendor", true)
	if err != nil {
		return nil, err
	}
	amount, err := getFloat64Field(raw, "amount", true)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("field \"amount\" must be positive, got %v", amount)
	}
	dateStr, err := getStringField(raw, "date", true)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", dateStr, err)
	}

	currencyPtr, err := getOptionalStringField(raw, "currency")
	if err != nil {
		return nil, err
	}
	currency := ""
	if currencyPtr != nil {
		currency = strings.ToUpper(*currencyPtr)
	}

	confidence := 1.0
	if confPtr, err := getOptionalFloat64Field(raw, "confidence"); err != nil {
		return nil, err
	} else if confPtr != nil {
		confidence = *confPtr
		if confidence < 0 || confidence > 1 {
			return nil, fmt.Errorf("field \"confidence\" must be in [0,1], got %v", confidence)
		}
	}

	return &Fields{
		Vendor:     vendor,
		Amount:     decimal.NewFromFloat(amount),
		Date:       date,
		Currency:   currency,
		Confidence: confidence,
	}, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func getOptionalFloat64Field(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		f := val
		return &f, nil
	case int:
		f := float64(val)
		return &f, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}
}
