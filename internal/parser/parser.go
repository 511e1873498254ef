package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/maltedev/offer-pricer/internal/outcome"
)

var (
	ErrEmptyInput = errors.New("empty input")
	ErrNoDecimal  = errors.New("no decimal number found")
)

// firstDecimalPattern matches digits '.' digits. Marketplace price cards can
// hold several numbers (e.g. a range), only the first match is used.
var firstDecimalPattern = regexp.MustCompile(`\d+\.\d+`)

// digitReplacer maps Persian and Arabic-Indic digits and separators to ASCII
// so panel text in either script parses the same way.
var digitReplacer = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٬", ",", "٫", ".",
)

// ParseGroupedInt strips grouping commas and converts the rest to an integer.
func ParseGroupedInt(raw string) (int64, error) {
	s := strings.TrimSpace(digitReplacer.Replace(raw))
	if s == "" {
		return 0, outcome.ParseFailure("", "cannot parse integer", ErrEmptyInput)
	}

	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, outcome.ParseFailure("", fmt.Sprintf("cannot parse integer from %q", raw), err)
	}
	return v, nil
}

// ParseFirstDecimal returns the first digits.digits number found in raw.
func ParseFirstDecimal(raw string) (float64, error) {
	match := firstDecimalPattern.FindString(digitReplacer.Replace(raw))
	if match == "" {
		return 0, outcome.ParseFailure("", fmt.Sprintf("no decimal in %q", truncate(raw, 80)), ErrNoDecimal)
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, outcome.ParseFailure("", fmt.Sprintf("cannot parse decimal %q", match), err)
	}
	return v, nil
}

// ParseNumber accepts grouped integers ("1,234") and plain decimals
// ("1234.5"). API payloads use it for numeric fields encoded as strings.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(digitReplacer.Replace(raw))
	if s == "" {
		return 0, outcome.ParseFailure("", "cannot parse number", ErrEmptyInput)
	}

	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, outcome.ParseFailure("", fmt.Sprintf("cannot parse number from %q", raw), err)
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
