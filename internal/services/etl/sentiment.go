package etl

import (
	"sync"

	"github.com/jonreiter/govader"
)

// The lexicon is loaded on first use; PolarityScores only reads it.
var sentimentAnalyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// HeadlineSentiment returns the VADER compound score of a headline, from
// -1 (most negative) to 1 (most positive). An empty headline scores 0.
func HeadlineSentiment(headline string) float64 {
	if headline == "" {
		return 0
	}
	return sentimentAnalyzer().PolarityScores(headline).Compound
}
