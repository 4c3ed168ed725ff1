package payfast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeAmount converts a client supplied amount to rands.
// Values above 1000 are treated as cents, older clients post R39 as 3900.
func NormalizeAmount(v float64) float64 {
	if v > 1000 {
		v = v / 100
	}
	return math.Round(v*100) / 100
}

func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// ParseAmount reads a PayFast amount such as "39.00"
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// AmountsMatch compares in whole cents, allowing one cent of drift
func AmountsMatch(expected, got float64) bool {
	diff := math.Round(expected*100) - math.Round(got*100)
	return math.Abs(diff) <= 1
}
