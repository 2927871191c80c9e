package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingScorer_HumanPace(t *testing.T) {
	scorer := NewTimingScorer()

	score := scorer.Score(Signals{
		Elapsed:     45 * time.Second,
		AnswerCount: 5,
	})

	assert.Equal(t, 0.0, score.Score)
	assert.False(t, score.IsBot)
}

func TestTimingScorer_InstantAnswers(t *testing.T) {
	scorer := NewTimingScorer()

	score := scorer.Score(Signals{
		Elapsed:     200 * time.Millisecond,
		AnswerCount: 6,
	})

	assert.True(t, score.IsBot)
	assert.Greater(t, score.Score, 0.8)
}

func TestTimingScorer_BorderlinePace(t *testing.T) {
	scorer := NewTimingScorer()

	// Half the expected time: suspicious but not flagged.
	score := scorer.Score(Signals{
		Elapsed:     time.Duration(3) * 1500 * time.Millisecond / 2,
		AnswerCount: 3,
	})

	assert.InDelta(t, 0.5, score.Score, 0.01)
	assert.False(t, score.IsBot)
}

func TestTimingScorer_NoAnswers(t *testing.T) {
	scorer := NewTimingScorer()

	score := scorer.Score(Signals{Elapsed: time.Second})

	assert.Equal(t, 0.5, score.Score)
	assert.False(t, score.IsBot)
}
