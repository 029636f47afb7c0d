package util

import (
	"regexp"
	"strconv"
	"strings"
)

var priceRegex = regexp.MustCompile(`\d+(?:[.,]\d{1,2})?`)

// ParsePrice extracts a price from scraped text like "€19.99", "19,99€" or
// "19.99". Returns 0 when no number is present.
func ParsePrice(s string) float64 {
	match := priceRegex.FindString(s)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ",", ".")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

var percentRegex = regexp.MustCompile(`\d+`)

// ParsePercent extracts a discount percentage from text like "-67%" or "67 %".
func ParsePercent(s string) int {
	match := percentRegex.FindString(s)
	if match == "" {
		return 0
	}
	v, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return v
}

// DerivePercent computes the discount percentage from prices, rounded to the
// nearest whole percent. Used when a source shows prices but no badge.
func DerivePercent(original, discounted float64) int {
	if original <= 0 || discounted >= original {
		return 0
	}
	return int((original-discounted)/original*100 + 0.5)
}
