package extract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform(t *testing.T) {
	raw := map[string]interface{}{
		"vendor":     "Staples",
		"amount":     42.97,
		"date":       "2026-03-10",
		"currency":   "usd",
		"confidence": 0.93,
	}

	fields, err := Transform(raw)
	require.NoError(t, err)
	assert.Equal(t, "Staples", fields.Vendor)
	assert.True(t, fields.Amount.Equal(decimal.RequireFromString("42.97")))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), fields.Date)
	assert.Equal(t, "USD", fields.Currency)
	assert.Equal(t, 0.93, fields.Confidence)
}

func TestTransformOptionalFieldsDefault(t *testing.T) {
	raw := map[string]interface{}{
		"vendor": "Staples",
		"amount": 42.97,
		"date":   "2026-03-10",
	}

	fields, err := Transform(raw)
	require.NoError(t, err)
	assert.Empty(t, fields.Currency)
	assert.Equal(t, 1.0, fields.Confidence)
}

func TestTransformRejectsBadInput(t *testing.T) {
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"vendor": "Staples",
			"amount": 42.97,
			"date":   "2026-03-10",
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing vendor", func(m map[string]interface{}) { delete(m, "vendor") }},
		{"empty vendor", func(m map[string]interface{}) { m["vendor"] = "  " }},
		{"missing amount", func(m map[string]interface{}) { delete(m, "amount") }},
		{"negative amount", func(m map[string]interface{}) { m["amount"] = -5.0 }},
		{"amount wrong type", func(m map[string]interface{}) { m["amount"] = "42.97" }},
		{"missing date", func(m map[string]interface{}) { delete(m, "date") }},
		{"bad date format", func(m map[string]interface{}) { m["date"] = "10/03/2026" }},
		{"confidence out of range", func(m map[string]interface{}) { m["confidence"] = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := base()
			tt.mutate(raw)
			_, err := Transform(raw)
			assert.Error(t, err)
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"vendor":"Staples"}`, `{"vendor":"Staples"}`},
		{"fenced json", "```json\n{\"vendor\":\"Staples\"}\n```", `{"vendor":"Staples"}`},
		{"plain fence", "```\n{\"vendor\":\"Staples\"}\n```", `{"vendor":"Staples"}`},
		{"surrounding prose", "Here you go: {\"vendor\":\"Staples\"} hope that helps", `{"vendor":"Staples"}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.raw))
		})
	}
}

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := parseGCSURI("gs://receipts/2026/03/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "receipts", bucket)
	assert.Equal(t, "2026/03/abc.pdf", object)

	for _, uri := range []string{"s3://bucket/key", "gs://bucket-only", "gs:///object", ""} {
		_, _, err := parseGCSURI(uri)
		assert.Error(t, err, uri)
	}
}
