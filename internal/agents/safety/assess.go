package safety

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

type Level string

const (
	LevelSafe   Level = "SAFE"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

const (
	strongNegative = -0.5
	neutralFloor   = -0.05
)

// MatchRiskWords returns the risk words that occur as whole words in text,
// in the order of words.
func MatchRiskWords(text string, words []string) []string {
	fold := cases.Fold()
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(fold.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}) {
		tokens[tok] = true
	}

	var matched []string
	for _, w := range words {
		if tokens[fold.String(w)] {
			matched = append(matched, w)
		}
	}
	return matched
}

// Assess applies the deterministic threat rules. ok is false when the rules
// leave the level open: no risk word but a negative sentiment.
func Assess(matched []string, compound float64) (level Level, ok bool) {
	switch {
	case len(matched) > 0 && compound < strongNegative:
		return LevelHigh, true
	case len(matched) > 0:
		return LevelMedium, true
	case compound >= neutralFloor:
		return LevelSafe, true
	default:
		return "", false
	}
}

func rulesJustification(level Level, matched []string, compound float64) string {
	switch level {
	case LevelHigh:
		return fmt.Sprintf("High-risk words (%s) with strongly negative sentiment %.2f.", strings.Join(matched, ", "), compound)
	case LevelMedium:
		return fmt.Sprintf("High-risk words (%s) without strongly negative sentiment (%.2f).", strings.Join(matched, ", "), compound)
	default:
		return fmt.Sprintf("No high-risk words and neutral or positive sentiment (%.2f).", compound)
	}
}
