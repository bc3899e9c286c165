// Package scoring grades a set of recorded answers against a quiz definition.
// It is pure: no I/O, no clock, no randomness.
package scoring

import (
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/stemsi/quizattempt/internal/model"
)

// Precondition violations. These indicate a data-integrity problem, not a learner error.
var (
	ErrMissingQuiz = errors.New("scoring: quiz configuration missing")
	ErrNoQuestions = errors.New("scoring: quiz has no scorable questions")
)

// Score grades answers against quiz. A question earns its points only when the
// submitted option set equals the correct option set exactly. Unanswered
// questions earn zero.
func Score(quiz *model.Quiz, answers model.Answers) (*model.ScoredResult, error) {
	if quiz == nil {
		return nil, ErrMissingQuiz
	}
	total := quiz.TotalPoints()
	if len(quiz.Questions) == 0 || total <= 0 {
		return nil, ErrNoQuestions
	}

	res := &model.ScoredResult{
		TotalPoints:    total,
		TotalQuestions: len(quiz.Questions),
		Questions:      make([]model.QuestionOutcome, 0, len(quiz.Questions)),
	}

	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		correct := sameSet(answers[q.ID], q.CorrectOptions())

		outcome := model.QuestionOutcome{QuestionID: q.ID, Correct: correct, Points: q.Points}
		if correct {
			outcome.Earned = q.Points
			res.EarnedPoints += q.Points
			res.CorrectQuestions++
		}
		res.Questions = append(res.Questions, outcome)
	}

	res.Score = Percent(res.EarnedPoints, total)
	res.Passed = res.Score >= quiz.PassingScorePercent
	return res, nil
}

// Percent returns earned/total as a percentage rounded half away from zero.
func Percent(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(earned) * 100 / float64(total)))
}

// sameSet compares as sets. A question with no correct option never matches,
// so a misconfigured question cannot be answered "correctly" by skipping it.
func sameSet(got, want []uuid.UUID) bool {
	if len(want) == 0 || len(got) == 0 {
		return false
	}
	wantSet := make(map[uuid.UUID]struct{}, len(want))
	for _, id := range want {
		wantSet[id] = struct{}{}
	}
	gotSet := make(map[uuid.UUID]struct{}, len(got))
	for _, id := range got {
		if _, ok := wantSet[id]; !ok {
			return false
		}
		gotSet[id] = struct{}{}
	}
	return len(gotSet) == len(wantSet)
}
