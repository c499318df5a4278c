package recon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func candidate(id, description, amount, date string) *model.Transaction {
	return &model.Transaction{
		RawTransaction: model.RawTransaction{
			Description: description,
			Amount:      decimal.RequireFromString(amount),
			Date:        day(date),
		},
		ID: id,
	}
}

func TestFindMatchesExactReceipt(t *testing.T) {
	// Same-day, same-amount receipt with a recognizable vendor clamps
	// to full confidence and confirms automatically.
	extracted := Extracted{
		Vendor: "Staples",
		Amount: decimal.RequireFromString("42.97"),
		Date:   day("2026-03-10"),
	}
	candidates := []*model.Transaction{
		candidate("tx-1", "STAPLES STORE #4421", "-42.97", "2026-03-10"),
	}

	matches := FindMatches(extracted, candidates, DefaultMatcherParams())
	require.Len(t, matches, 1)
	assert.Equal(t, "tx-1", matches[0].TransactionID)
	assert.InDelta(t, 1.0, matches[0].Confidence, 1e-9)
	assert.Equal(t, model.MatchConfirmed, matches[0].Status)
}

func TestFindMatchesEligibilityBounds(t *testing.T) {
	extracted := Extracted{
		Amount: decimal.RequireFromString("100.00"),
		Date:   day("2026-03-10"),
	}

	tests := []struct {
		name string
		tx   *model.Transaction
		want bool
	}{
		{"same day exact amount", candidate("a", "x", "-100.00", "2026-03-10"), true},
		{"seven days out", candidate("b", "x", "-100.00", "2026-03-17"), true},
		{"eight days out", candidate("c", "x", "-100.00", "2026-03-18"), false},
		{"amount at 5 percent bound", candidate("d", "x", "-105.00", "2026-03-10"), true},
		{"amount inside tolerance", candidate("e", "x", "-104.00", "2026-03-10"), true},
		{"amount outside tolerance", candidate("f", "x", "-106.00", "2026-03-10"), false},
		{"zero amount", candidate("g", "x", "0", "2026-03-10"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := FindMatches(extracted, []*model.Transaction{tt.tx}, DefaultMatcherParams())
			if tt.want {
				assert.Len(t, matches, 1)
			} else {
				assert.Empty(t, matches)
			}
		})
	}
}

func TestFindMatchesAmountBoundIsRelativeToTransaction(t *testing.T) {
	// Tolerance is computed off the transaction amount: |100-105| = 5
	// vs 105*0.05 = 5.25, so a 105.00 transaction against a 100.00
	// document is still eligible.
	extracted := Extracted{
		Amount: decimal.RequireFromString("100.00"),
		Date:   day("2026-03-10"),
	}
	matches := FindMatches(extracted, []*model.Transaction{
		candidate("a", "x", "-105.00", "2026-03-10"),
	}, DefaultMatcherParams())
	assert.Len(t, matches, 1)
}

func TestFindMatchesRankingAndCap(t *testing.T) {
	extracted := Extracted{
		Amount: decimal.RequireFromString("100.00"),
		Date:   day("2026-03-10"),
	}
	candidates := []*model.Transaction{
		candidate("far", "x", "-100.00", "2026-03-16"),
		candidate("near", "x", "-100.00", "2026-03-11"),
		candidate("exact", "x", "-100.00", "2026-03-10"),
		candidate("off-amount", "x", "-103.00", "2026-03-10"),
		candidate("mid", "x", "-100.00", "2026-03-13"),
	}

	matches := FindMatches(extracted, candidates, DefaultMatcherParams())
	require.Len(t, matches, 3, "capped at MaxMatches")
	assert.Equal(t, "exact", matches[0].TransactionID)
	assert.Equal(t, "near", matches[1].TransactionID)

	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i].Confidence, matches[i-1].Confidence)
	}
}

func TestFindMatchesStableTieOrder(t *testing.T) {
	extracted := Extracted{
		Amount: decimal.RequireFromString("100.00"),
		Date:   day("2026-03-10"),
	}
	candidates := []*model.Transaction{
		candidate("first", "x", "-100.00", "2026-03-12"),
		candidate("second", "x", "-100.00", "2026-03-12"),
	}

	matches := FindMatches(extracted, candidates, DefaultMatcherParams())
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].TransactionID)
	assert.Equal(t, "second", matches[1].TransactionID)
}

func TestFindMatchesDateDecay(t *testing.T) {
	extracted := Extracted{
		Amount: decimal.RequireFromString("100.00"),
		Date:   day("2026-03-10"),
	}

	same := FindMatches(extracted, []*model.Transaction{candidate("a", "", "-100.00", "2026-03-10")}, DefaultMatcherParams())
	edge := FindMatches(extracted, []*model.Transaction{candidate("b", "", "-100.00", "2026-03-17")}, DefaultMatcherParams())
	require.Len(t, same, 1)
	require.Len(t, edge, 1)

	// Full date term on the same day, none at the bound.
	assert.InDelta(t, 0.5+0.3+0.3, same[0].Confidence, 1e-9)
	assert.InDelta(t, 0.5+0.0+0.3, edge[0].Confidence, 1e-9)
	assert.Equal(t, model.MatchConfirmed, same[0].Status)
	assert.Equal(t, model.MatchSuggested, edge[0].Status)
}

func TestVendorSimilarity(t *testing.T) {
	tests := []struct {
		name        string
		vendor      string
		description string
		want        float64
		delta       float64
	}{
		{"empty vendor", "", "STAPLES", 0, 0},
		{"empty description", "Staples", "", 0, 0},
		{"case insensitive full overlap", "abc", "CAB", 1.0, 1e-9},
		{"partial overlap over longer length", "staples", "staples store #4421", 7.0 / 19.0, 1e-9},
		{"no overlap", "xyz", "qqq", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vendorSimilarity(tt.vendor, tt.description)
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

func TestAbsDaysIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, absDays(a, b))
	assert.Equal(t, 1, absDays(b, a))
	assert.Equal(t, 0, absDays(a, a))
}
