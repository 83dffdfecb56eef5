package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	testCases := []struct {
		name    string
		correct int
		total   int
		want    int
	}{
		{name: "exact boundary 7 of 10", correct: 7, total: 10, want: 70},
		{name: "all correct", correct: 3, total: 3, want: 100},
		{name: "none correct", correct: 0, total: 5, want: 0},
		{name: "rounds up", correct: 2, total: 3, want: 67},
		{name: "rounds down", correct: 1, total: 3, want: 33},
		{name: "zero questions", correct: 0, total: 0, want: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.correct, tc.total))
		})
	}
}

func TestPassed(t *testing.T) {
	// 7/10 is exactly passing at the default threshold.
	assert.True(t, Passed(Score(7, 10), 0))
	assert.False(t, Passed(69, 0))
	// Per-quiz threshold overrides the default.
	assert.False(t, Passed(70, 80))
	assert.True(t, Passed(80, 80))
}

func TestGrade(t *testing.T) {
	correct := []int{0, 2, 1}
	assert.Equal(t, 3, Grade([]int{0, 2, 1}, correct))
	assert.Equal(t, 1, Grade([]int{0, 1, 2}, correct))
	// Short answer vectors only score the positions they cover.
	assert.Equal(t, 1, Grade([]int{0}, correct))
	// Extra answers past the question count are ignored.
	assert.Equal(t, 3, Grade([]int{0, 2, 1, 3}, correct))
	assert.Equal(t, 0, Grade(nil, correct))
}
