// Package sentiment scores the polarity of short texts.
package sentiment

import (
	"github.com/jonreiter/govader"
)

type Analyzer interface {
	// Compound returns a score in [-1, 1]; negative is hostile or distressed.
	Compound(text string) float64
}

type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *Vader) Compound(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

// Fixed always returns the same score.
type Fixed float64

func (f Fixed) Compound(string) float64 { return float64(f) }

var (
	_ Analyzer = (*Vader)(nil)
	_ Analyzer = Fixed(0)
)
