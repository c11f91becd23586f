package analysis

import (
	"strings"
	"testing"
)

func TestParseEventProgress(t *testing.T) {
	raw := []byte(`{"event":"analysis_update","session":"sess_1","data":{"message":"Fetching tweets","progress":10}}`)
	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse progress event: %v", err)
	}
	if event.Kind != EventKindProgress {
		t.Fatalf("unexpected kind %q", event.Kind)
	}
	if event.Session != "sess_1" {
		t.Fatalf("unexpected session %q", event.Session)
	}
	if event.Progress.Progress != 10 || event.Progress.Message != "Fetching tweets" {
		t.Fatalf("unexpected payload %+v", event.Progress)
	}
}

func TestParseEventConnectedUsesSID(t *testing.T) {
	raw := []byte(`{"event":"connected","data":{"sid":"conn_42"}}`)
	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse connected event: %v", err)
	}
	if event.Session != "conn_42" {
		t.Fatalf("expected connection id in session field, got %q", event.Session)
	}
}

func TestParseEventCompleteNormalizesResult(t *testing.T) {
	raw := []byte(`{
		"event":"analysis_complete",
		"session":"sess_1",
		"data":{
			"query":"#AI",
			"tweets_analyzed":5,
			"sentiment":{"positive":3,"negative":1,"neutral":1},
			"toxicity":{"toxic_count":1},
			"topics":["ai","ml"],
			"tweets":[
				{"id":"t1","text":"a","sentiment":"positive","toxicity_score":0.1},
				{"id":"t2","text":"b","sentiment":"positive","toxicity_score":0.2},
				{"id":"t3","text":"c","sentiment":"positive","toxicity_score":0.1},
				{"id":"t4","text":"d","sentiment":"negative","toxicity_score":0.9,"is_toxic":true},
				{"id":"t5","text":"e","sentiment":"neutral","toxicity_score":0.3}
			]
		}
	}`)
	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse complete event: %v", err)
	}
	if event.Result == nil {
		t.Fatalf("expected result payload")
	}
	if got := event.Result.Sentiment.PositivePct; got != 60 {
		t.Fatalf("expected positive_pct 60, got %v", got)
	}
	if got := event.Result.Toxicity.ToxicityRate; got != 20 {
		t.Fatalf("expected toxicity_rate 20, got %v", got)
	}
	if len(event.Result.Tweets) != 5 {
		t.Fatalf("expected 5 tweets, got %d", len(event.Result.Tweets))
	}
}

func TestParseEventFailedDefaultsReason(t *testing.T) {
	event, err := ParseEvent([]byte(`{"event":"analysis_error","session":"s","data":{"error":""}}`))
	if err != nil {
		t.Fatalf("parse failed event: %v", err)
	}
	if event.Reason != "analysis failed" {
		t.Fatalf("unexpected reason %q", event.Reason)
	}
}

func TestParseEventRejectsUnknownKind(t *testing.T) {
	_, err := ParseEvent([]byte(`{"event":"status_update","data":{"message":"hi"}}`))
	if err == nil || !strings.Contains(err.Error(), "unsupported event kind") {
		t.Fatalf("expected unsupported kind error, got %v", err)
	}
}

func TestParseEventRejectsMismatchedCounts(t *testing.T) {
	raw := []byte(`{"event":"analysis_complete","session":"s","data":{"query":"q","tweets_analyzed":3,"sentiment":{"positive":1,"negative":1,"neutral":0},"tweets":[]}}`)
	_, err := ParseEvent(raw)
	if err == nil {
		t.Fatalf("expected validation error for mismatched counts")
	}
}

func TestParseEventRejectsProgressOutOfRange(t *testing.T) {
	_, err := ParseEvent([]byte(`{"event":"analysis_update","session":"s","data":{"message":"m","progress":120}}`))
	if err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestResultValidateRejectsDuplicateTweetIDs(t *testing.T) {
	result := Result{
		TweetsAnalyzed: 2,
		Sentiment:      SentimentSummary{Positive: 2, PositivePct: 100},
		Tweets: []Tweet{
			{ID: "t1", Sentiment: SentimentPositive},
			{ID: "t1", Sentiment: SentimentPositive},
		},
	}
	if err := result.Validate(); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
