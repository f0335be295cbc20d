// Package core provides money parsing and formatting utilities.
//
// This file contains the amount parser used by the entry form and the
// currency formatter used by every display surface (en-IN locale, INR).
package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// CurrencySymbol is the prefix of every formatted amount.
const CurrencySymbol = "₹"

var leadingNumber = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseAmount reads the longest leading decimal literal of s, ignoring
// leading whitespace (Unicode spaces and the BOM included) and any trailing
// garbage.
//
// Examples:
//
//	ParseAmount("12.5")    -> 12.5, true
//	ParseAmount(" 7kg")    -> 7, true
//	ParseAmount("-3")      -> -3, true
//	ParseAmount("abc")     -> 0, false
//	ParseAmount("Infinity") -> +Inf, true
//
// The result may be negative, zero or infinite; callers decide what is acceptable.
func ParseAmount(s string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimLeftFunc(s, isLeadingSpace))
	if m == "" {
		return 0, false
	}
	switch strings.TrimLeft(m, "+") {
	case "Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// Out-of-range literals still yield ±Inf from ParseFloat.
		if math.IsInf(v, 0) {
			return v, true
		}
		return 0, false
	}
	return v, true
}

func isLeadingSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// FormatCurrency renders v as Indian rupees with two decimals and lakh/crore
// digit grouping, e.g. 123456.78 -> "₹1,23,456.78" and -12.5 -> "-₹12.50".
func FormatCurrency(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	out := CurrencySymbol + groupIndian(s[:dot]) + s[dot:]
	if neg && out != CurrencySymbol+"0.00" {
		return "-" + out
	}
	return out
}

// groupIndian groups the last three digits, then every two digits after that.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	first := len(head) % 2
	if first == 0 {
		first = 2
	}
	b.WriteString(head[:first])
	for i := first; i < len(head); i += 2 {
		b.WriteByte(',')
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}
