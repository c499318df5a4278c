// Package recon links bank transactions to documentary evidence:
// a pure confidence-scored matcher plus the service that drives the
// reconciliation lifecycle.
package recon

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/model"
)

// MatcherParams are the matching thresholds and confidence weights.
// The defaults are tuned heuristics, not domain law, so they stay
// configurable.
type MatcherParams struct {
	// MaxDateDiffDays bounds candidate eligibility by date distance.
	MaxDateDiffDays int `yaml:"max_date_diff_days"`

	// AmountTolerance is the relative amount bound (0.05 = 5%).
	AmountTolerance float64 `yaml:"amount_tolerance"`

	BaseScore    float64 `yaml:"base_score"`
	DateWeight   float64 `yaml:"date_weight"`
	AmountWeight float64 `yaml:"amount_weight"`
	VendorWeight float64 `yaml:"vendor_weight"`

	// AutoConfirmThreshold: matches scoring strictly above it persist
	// as CONFIRMED rather than SUGGESTED.
	AutoConfirmThreshold float64 `yaml:"auto_confirm_threshold"`

	// MaxMatches caps how many ranked matches are persisted.
	MaxMatches int `yaml:"max_matches"`
}

// DefaultMatcherParams returns the tuned defaults.
func DefaultMatcherParams() MatcherParams {
	return MatcherParams{
		MaxDateDiffDays:      7,
		AmountTolerance:      0.05,
		BaseScore:            0.5,
		DateWeight:           0.3,
		AmountWeight:         0.3,
		VendorWeight:         0.2,
		AutoConfirmThreshold: 0.9,
		MaxMatches:           3,
	}
}

// Extracted is the document evidence the matcher scores against:
// the AI-extracted vendor, amount and date plus the extractor's own
// confidence.
type Extracted struct {
	Vendor     string
	Amount     decimal.Decimal
	Date       time.Time
	Confidence float64
}

// Match is one ranked suggestion produced by FindMatches.
type Match struct {
	TransactionID string
	Confidence    float64
	Status        model.MatchStatus // CONFIRMED above the threshold, else SUGGESTED
	Reason        string
}

// FindMatches scores candidate transactions against extracted document
// data and returns ranked suggestions. Pure function: no I/O, no
// shared state, safe to call concurrently.
//
// Eligibility: a candidate within MaxDateDiffDays and within
// AmountTolerance of the document amount. Candidates outside either
// bound are excluded entirely, not down-scored.
//
// Confidence: BaseScore plus a date term scaling linearly to zero at
// the day bound, an amount term scaling with relative difference, and
// a vendor term from character-overlap similarity when both vendor and
// description are present. Clamped to 1.0.
//
// Ties keep the order candidates were supplied in; the sort is stable
// by design so ranking is deterministic.
func FindMatches(extracted Extracted, candidates []*model.Transaction, params MatcherParams) []Match {
	docAmount := extracted.Amount.Abs()

	var matches []Match
	for _, tx := range candidates {
		txAmount := tx.AbsAmount()
		if txAmount.IsZero() {
			continue
		}

		daysDiff := absDays(extracted.Date, tx.Date)
		if daysDiff > params.MaxDateDiffDays {
			continue
		}

		amountDiff := docAmount.Sub(txAmount).Abs()
		tolerance := txAmount.Mul(decimal.NewFromFloat(params.AmountTolerance))
		if amountDiff.GreaterThan(tolerance) {
			continue
		}

		confidence := params.BaseScore
		var reasons []string

		dateTerm := params.DateWeight * float64(params.MaxDateDiffDays-daysDiff) / float64(params.MaxDateDiffDays)
		confidence += dateTerm
		reasons = append(reasons, fmt.Sprintf("date within %d day(s)", daysDiff))

		amountRatio, _ := amountDiff.Div(txAmount).Float64()
		confidence += params.AmountWeight * (1 - amountRatio)
		if amountDiff.IsZero() {
			reasons = append(reasons, "exact amount")
		} else {
			reasons = append(reasons, fmt.Sprintf("amount within %s", amountDiff))
		}

		if extracted.Vendor != "" && tx.Description != "" {
			sim := vendorSimilarity(extracted.Vendor, tx.Description)
			if sim > 0 {
				confidence += params.VendorWeight * sim
				reasons = append(reasons, fmt.Sprintf("vendor similarity %.2f", sim))
			}
		}

		if confidence > 1.0 {
			confidence = 1.0
		}

		status := model.MatchSuggested
		if confidence > params.AutoConfirmThreshold {
			status = model.MatchConfirmed
		}

		matches = append(matches, Match{
			TransactionID: tx.ID,
			Confidence:    confidence,
			Status:        status,
			Reason:        strings.Join(reasons, ", "),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	if params.MaxMatches > 0 && len(matches) > params.MaxMatches {
		matches = matches[:params.MaxMatches]
	}
	return matches
}

// vendorSimilarity is the share of vendor characters also present in
// the description, over the length of the longer string. A cheap,
// explainable, order-insensitive heuristic rather than edit distance.
func vendorSimilarity(vendor, description string) float64 {
	v := strings.ToLower(strings.TrimSpace(vendor))
	d := strings.ToLower(strings.TrimSpace(description))
	if v == "" || d == "" {
		return 0
	}

	overlap := 0
	for _, r := range v {
		if strings.ContainsRune(d, r) {
			overlap++
		}
	}

	longer := len([]rune(v))
	if l := len([]rune(d)); l > longer {
		longer = l
	}
	return float64(overlap) / float64(longer)
}

// absDays is the whole-day distance between two dates, ignoring the
// time of day.
func absDays(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(ad.Sub(bd).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}
