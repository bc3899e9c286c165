package service

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/stemsi/quizattempt/internal/model"
)

// shuffler returns a generator seeded from the attempt ID and a salt, so the
// same attempt always sees the same order.
func shuffler(attemptID, salt uuid.UUID) *rand.Rand {
	hi := binary.BigEndian.Uint64(attemptID[:8]) ^ binary.BigEndian.Uint64(salt[:8])
	lo := binary.BigEndian.Uint64(attemptID[8:]) ^ binary.BigEndian.Uint64(salt[8:])
	return rand.New(rand.NewPCG(hi, lo))
}

// questionOrder returns the question IDs in the order the attempt presents them.
func questionOrder(quiz *model.Quiz, attemptID uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, len(quiz.Questions))
	for i, q := range quiz.Questions {
		ids[i] = q.ID
	}
	if quiz.RandomizeQuestions {
		r := shuffler(attemptID, quiz.ID)
		r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	return ids
}

// orderedQuestions resolves the attempt's question order against the quiz.
// A stored order that no longer matches the quiz is ignored.
func orderedQuestions(quiz *model.Quiz, attempt *model.QuizAttempt) []*model.QuizQuestion {
	order := attempt.QuestionOrder
	if len(order) != len(quiz.Questions) {
		order = questionOrder(quiz, attempt.ID)
	}

	out := make([]*model.QuizQuestion, 0, len(order))
	for _, id := range order {
		q, ok := quiz.Question(id)
		if !ok {
			return orderedQuestions(quiz, &model.QuizAttempt{ID: attempt.ID})
		}
		out = append(out, q)
	}
	return out
}

func orderedOptions(q *model.QuizQuestion, attemptID uuid.UUID, randomize bool) []model.PaperOption {
	opts := make([]model.PaperOption, len(q.Options))
	for i, o := range q.Options {
		opts[i] = model.PaperOption{ID: o.ID, Text: o.Text, ImageURL: o.ImageURL}
	}
	if randomize {
		r := shuffler(attemptID, q.ID)
		r.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	}
	return opts
}

// buildPaper renders the learner-facing quiz for one attempt. Correct flags never
// reach the paper.
func buildPaper(quiz *model.Quiz, attempt *model.QuizAttempt) *model.QuizPaper {
	paper := &model.QuizPaper{
		QuizID:           quiz.ID,
		AttemptID:        attempt.ID,
		Title:            quiz.Title,
		TimeLimitSeconds: quiz.TimeLimitSeconds,
		ShowProgressBar:  quiz.ShowProgressBar,
		PreventTabSwitch: quiz.PreventTabSwitch,
		PreventCopyPaste: quiz.PreventCopyPaste,
	}
	for _, q := range orderedQuestions(quiz, attempt) {
		paper.Questions = append(paper.Questions, model.PaperQuestion{
			ID:       q.ID,
			Prompt:   q.Prompt,
			ImageURL: q.ImageURL,
			Type:     q.Type,
			Points:   q.Points,
			Options:  orderedOptions(q, attempt.ID, quiz.RandomizeAnswers),
		})
	}
	return paper
}
