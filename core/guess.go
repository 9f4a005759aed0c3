package core

import (
	"regexp"
	"strconv"
	"strings"
)

type GuessKind string

const (
	// GuessKindNumeric marks a guess whose cell already carried a number.
	GuessKindNumeric GuessKind = "numeric"
	// GuessKindParsed marks a guess extracted from free-form text.
	GuessKindParsed GuessKind = "parsed"
	// GuessKindInvalid marks a guess that could not be canonicalized.
	GuessKindInvalid GuessKind = "invalid"
)

// GuessValue is the canonical decimal guess derived from a cell: a finite,
// non-negative value with at most two fractional digits, or an explicit
// invalid marker. A guess is never silently coerced to zero.
type GuessValue struct {
	Kind   GuessKind
	Value  float64
	Source string
	Reason ReasonCode
}

// guessPattern extracts a decimal of up to two integer digits, a '.' or ','
// separator, and any number of fractional digits (truncated to two later).
// Both sides of the separator may be empty.
var guessPattern = regexp.MustCompile(`([0-9]{0,2})[.,]([0-9]*)`)

// ParseGuess canonicalizes a guess cell. Numeric cells pass through after a
// sign check; textual cells go through decimal extraction.
func ParseGuess(cell Cell) GuessValue {
	switch value := cell.Value.(type) {
	case float64:
		return numericGuess(value)
	case int:
		return numericGuess(float64(value))
	case int64:
		return numericGuess(float64(value))
	case string:
		return parseTextGuess(value)
	default:
		return GuessValue{Kind: GuessKindInvalid, Reason: ReasonBadFormat}
	}
}

func numericGuess(value float64) GuessValue {
	if value < 0 {
		return GuessValue{Kind: GuessKindInvalid, Reason: ReasonNegative}
	}
	return GuessValue{Kind: GuessKindNumeric, Value: value, Reason: ReasonOK}
}

func parseTextGuess(text string) GuessValue {
	match := guessPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return GuessValue{Kind: GuessKindInvalid, Reason: ReasonBadFormat}
	}

	integerPart := match[1]
	if integerPart == "" {
		integerPart = "0"
	}
	fractionPart := match[2]
	if len(fractionPart) > 2 {
		fractionPart = fractionPart[:2]
	}
	if fractionPart == "" {
		fractionPart = "0"
	}

	integer, err := strconv.ParseFloat(integerPart, 64)
	if err != nil {
		return GuessValue{Kind: GuessKindInvalid, Reason: ReasonBadFormat}
	}
	fraction, err := strconv.ParseFloat(fractionPart, 64)
	if err != nil {
		return GuessValue{Kind: GuessKindInvalid, Reason: ReasonBadFormat}
	}
	for range fractionPart {
		fraction /= 10
	}

	return GuessValue{
		Kind:   GuessKindParsed,
		Value:  integer + fraction,
		Source: match[0],
		Reason: ReasonOK,
	}
}

// FormatGuess renders a canonical value without trailing zeros, matching
// how the value appears in outbound messages.
func FormatGuess(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
