package bot

import (
	"time"
)

// Signals are the session timing facts the scorer works from.
type Signals struct {
	Elapsed      time.Duration
	AnswerCount  int
	Interactions int
}

// Score is the scorer's verdict. Score runs 0 (human) to 1 (automated).
type Score struct {
	Score float64 `json:"score"`
	IsBot bool    `json:"isBot"`
}

// Scorer rates a finished session for automation likelihood.
type Scorer interface {
	Score(signals Signals) Score
}

// TimingScorer flags sessions that were filled in faster than a human
// plausibly types. MinPerAnswer defaults to 1.5s per answered step.
type TimingScorer struct {
	MinPerAnswer time.Duration
}

func NewTimingScorer() *TimingScorer {
	return &TimingScorer{MinPerAnswer: 1500 * time.Millisecond}
}

func (s *TimingScorer) Score(signals Signals) Score {
	if signals.AnswerCount == 0 {
		return Score{Score: 0.5}
	}

	expected := time.Duration(signals.AnswerCount) * s.MinPerAnswer
	if signals.Elapsed >= expected {
		return Score{Score: 0}
	}

	ratio := 1 - float64(signals.Elapsed)/float64(expected)
	return Score{
		Score: ratio,
		IsBot: ratio > 0.8,
	}
}
