// Package view derives displayable subsets of an analysis result. Everything
// here is pure: identical inputs always produce identical output.
package view

import (
	"fmt"
	"strings"

	"convosense.local/dashboard/internal/analysis"
)

type Filter string

const (
	FilterAll      Filter = "all"
	FilterPositive Filter = "positive"
	FilterNegative Filter = "negative"
	FilterNeutral  Filter = "neutral"
	FilterToxic    Filter = "toxic"
)

const DefaultPageSize = 20

// ParseFilter normalizes user input into a known filter selection.
func ParseFilter(raw string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(raw))) {
	case FilterAll, "":
		return FilterAll, nil
	case FilterPositive:
		return FilterPositive, nil
	case FilterNegative:
		return FilterNegative, nil
	case FilterNeutral:
		return FilterNeutral, nil
	case FilterToxic:
		return FilterToxic, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

type Counts struct {
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
	Visible  int `json:"visible"`
}

type View struct {
	Filter         Filter           `json:"filter"`
	FilteredTweets []analysis.Tweet `json:"filtered_tweets"`
	VisibleTweets  []analysis.Tweet `json:"visible_tweets"`
	Counts         Counts           `json:"counts"`
	Truncated      bool             `json:"truncated"`
}

// Derive filters and paginates a result. The filtered sequence preserves the
// result's original order; pagination truncates the filtered sequence, not
// the unfiltered one. A nil result yields an empty view.
func Derive(result *analysis.Result, filter Filter, pageSize int, showAll bool) View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	out := View{Filter: filter, FilteredTweets: []analysis.Tweet{}, VisibleTweets: []analysis.Tweet{}}
	if result == nil {
		return out
	}

	for _, tweet := range result.Tweets {
		if matches(tweet, filter) {
			out.FilteredTweets = append(out.FilteredTweets, tweet)
		}
	}

	out.VisibleTweets = out.FilteredTweets
	if !showAll && len(out.FilteredTweets) > pageSize {
		out.VisibleTweets = out.FilteredTweets[:pageSize]
		out.Truncated = true
	}

	out.Counts = Counts{
		Total:    len(result.Tweets),
		Filtered: len(out.FilteredTweets),
		Visible:  len(out.VisibleTweets),
	}
	return out
}

func matches(tweet analysis.Tweet, filter Filter) bool {
	switch filter {
	case FilterAll, "":
		return true
	case FilterToxic:
		return tweet.IsToxic
	default:
		return strings.EqualFold(string(tweet.Sentiment), string(filter))
	}
}
