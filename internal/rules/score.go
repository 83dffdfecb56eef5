package rules

import "math"

// DefaultPassingScore is the fallback percent threshold applied when a
// quiz record carries no passing_score of its own.
const DefaultPassingScore = 70

// Score returns the percent score for a quiz attempt, rounded to the
// nearest integer. A quiz with zero questions scores zero rather than
// dividing by zero.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Passed reports whether a score meets the quiz's passing threshold.
// Quizzes carry a per-quiz passing_score; a zero or negative value
// means the quiz was created before thresholds were configurable and
// falls back to DefaultPassingScore. Exactly meeting the threshold
// passes.
func Passed(score, passingScore int) bool {
	if passingScore <= 0 {
		passingScore = DefaultPassingScore
	}
	return score >= passingScore
}

// Grade compares an answer vector against the correct indices by exact
// index match and returns the number of correct answers. Extra or
// missing answers count as wrong; only positions present in both and
// equal contribute.
func Grade(answers, correct []int) int {
	n := 0
	for i, want := range correct {
		if i < len(answers) && answers[i] == want {
			n++
		}
	}
	return n
}
