package analysis

import (
	"fmt"
	"math"
	"strings"
)

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

type Author struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Verified bool   `json:"verified"`
}

type Engagement struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Replies  int `json:"replies"`
}

type Tweet struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	Author        Author         `json:"author"`
	Sentiment     SentimentLabel `json:"sentiment"`
	ToxicityScore float64        `json:"toxicity_score"`
	IsToxic       bool           `json:"is_toxic"`
	Engagement    Engagement     `json:"engagement"`
}

type SentimentSummary struct {
	Positive    int     `json:"positive"`
	Negative    int     `json:"negative"`
	Neutral     int     `json:"neutral"`
	PositivePct float64 `json:"positive_pct"`
	NegativePct float64 `json:"negative_pct"`
	NeutralPct  float64 `json:"neutral_pct"`
}

type ToxicitySummary struct {
	ToxicCount   int     `json:"toxic_count"`
	ToxicityRate float64 `json:"toxicity_rate"`
}

// Result is immutable once attached to a session: the orchestrator hands out
// the same pointer in every snapshot and nothing may mutate it afterwards.
type Result struct {
	Query          string           `json:"query"`
	TweetsAnalyzed int              `json:"tweets_analyzed"`
	Sentiment      SentimentSummary `json:"sentiment"`
	Toxicity       ToxicitySummary  `json:"toxicity"`
	Topics         []string         `json:"topics"`
	Tweets         []Tweet          `json:"tweets"`
}

// Normalize recomputes derived figures from the counts, which are the source
// of truth. Engines have been observed emitting percentages that drift from
// their own counts.
func (r *Result) Normalize() {
	if r.TweetsAnalyzed == 0 {
		r.TweetsAnalyzed = len(r.Tweets)
	}
	total := r.Sentiment.Positive + r.Sentiment.Negative + r.Sentiment.Neutral
	if total > 0 {
		r.Sentiment.PositivePct = pct(r.Sentiment.Positive, total)
		r.Sentiment.NegativePct = pct(r.Sentiment.Negative, total)
		r.Sentiment.NeutralPct = pct(r.Sentiment.Neutral, total)
	}

	toxic := 0
	for _, tweet := range r.Tweets {
		if tweet.IsToxic {
			toxic++
		}
	}
	if r.Toxicity.ToxicCount == 0 && toxic > 0 {
		r.Toxicity.ToxicCount = toxic
	}
	if r.Toxicity.ToxicityRate == 0 && r.TweetsAnalyzed > 0 {
		r.Toxicity.ToxicityRate = pct(r.Toxicity.ToxicCount, r.TweetsAnalyzed)
	}
}

func (r *Result) Validate() error {
	counted := r.Sentiment.Positive + r.Sentiment.Negative + r.Sentiment.Neutral
	if counted != r.TweetsAnalyzed {
		return fmt.Errorf("sentiment counts sum to %d, tweets_analyzed is %d", counted, r.TweetsAnalyzed)
	}
	if counted > 0 {
		pctSum := r.Sentiment.PositivePct + r.Sentiment.NegativePct + r.Sentiment.NeutralPct
		if math.Abs(pctSum-100) > 1 {
			return fmt.Errorf("sentiment percentages sum to %.2f", pctSum)
		}
	}

	seen := make(map[string]bool, len(r.Tweets))
	for _, tweet := range r.Tweets {
		if strings.TrimSpace(tweet.ID) == "" {
			return fmt.Errorf("tweet id is required")
		}
		if seen[tweet.ID] {
			return fmt.Errorf("duplicate tweet id %q", tweet.ID)
		}
		seen[tweet.ID] = true
		if tweet.ToxicityScore < 0 || tweet.ToxicityScore > 1 {
			return fmt.Errorf("tweet %s toxicity_score %.3f out of range", tweet.ID, tweet.ToxicityScore)
		}
	}
	return nil
}

func pct(part, total int) float64 {
	return math.Round(float64(part)/float64(total)*10000) / 100
}
