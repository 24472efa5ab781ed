package service

import (
	"context"
	"testing"

	"quiz_engine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradingEngine(qs ...model.Question) *GradingEngine {
	return NewGradingEngine(NewQuestionFetcher(newFakeQuestionSource(qs...), testFetchOptions()))
}

func TestGradeAttemptRules(t *testing.T) {
	manual := question("essay", model.ShortAnswer, "photosynthesis")
	manual.ManualGrading = true

	cases := []struct {
		name    string
		q       model.Question
		answer  string
		correct bool
	}{
		{"single choice exact", question("q", model.SingleChoice, "B"), "B", true},
		{"single choice is case sensitive", question("q", model.SingleChoice, "B"), "b", false},
		{"true false", question("q", model.TrueFalse, "true"), "true", true},
		{"multi select order independent", question("q", model.MultiSelect, `["A","B"]`), `["B","A"]`, true},
		{"multi select missing option", question("q", model.MultiSelect, `["A","B"]`), `["A"]`, false},
		{"multi select malformed submission", question("q", model.MultiSelect, `["A","B"]`), `A,B`, false},
		{"multi select malformed stored answer", question("q", model.MultiSelect, `A|B`), `["A","B"]`, false},
		{"fill blank cjk whitespace", question("q", model.FillBlank, "北京 市"), "北京市", true},
		{"fill blank trim and case", question("q", model.FillBlank, "Paris"), " paris ", true},
		{"fill blank json vs delimiter", question("q", model.FillBlank, `["Paris","London"]`), "paris|||LONDON", true},
		{"fill blank positional", question("q", model.FillBlank, `["Paris","London"]`), `["London","Paris"]`, false},
		{"fill blank length mismatch", question("q", model.FillBlank, `["Paris","London"]`), "Paris", false},
		{"short answer auto", question("q", model.ShortAnswer, "Mitochondria"), "  mitochondria", true},
		{"fill blank empty blank never matches", question("q", model.FillBlank, "Paris|||"), "paris|||", false},
		{"fill blank markup only blank", question("q", model.FillBlank, `["<br/>"]`), "", false},
		{"fill blank unclosed angle bracket", question("q", model.FillBlank, "x<y"), "x<z", false},
		{"short answer empty stored answer", question("q", model.ShortAnswer, ""), "", false},
		{"short answer unclosed angle bracket", question("q", model.ShortAnswer, "a<b"), "a<anything at all", false},
		{"short answer with markup", question("q", model.ShortAnswer, "<b>a</b><b"), "A<b", true},
		{"short answer manual never auto correct", manual, "photosynthesis", false},
		{"unknown type", question("q", model.QuestionType("matching"), "x"), "x", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.q
			a := GradeAttempt(&q, SubmittedAttempt{QuestionID: q.ID, UserAnswer: tc.answer, MaxScore: 4})

			assert.Equal(t, tc.correct, a.IsCorrect)
			if tc.correct {
				assert.Equal(t, 4, a.Score)
			} else {
				assert.Equal(t, 0, a.Score)
			}
			assert.Equal(t, q.CorrectAnswer, a.SnapshotAnswer)
			assert.Equal(t, q.Explanation, a.SnapshotExplain)
			assert.Equal(t, q.Text, a.SnapshotText)
		})
	}
}

func TestGradeAttemptManualShortAnswerIsPending(t *testing.T) {
	q := question("essay", model.ShortAnswer, "same text")
	q.ManualGrading = true

	a := GradeAttempt(&q, SubmittedAttempt{QuestionID: "essay", UserAnswer: "same text", MaxScore: 10})

	assert.False(t, a.IsCorrect)
	assert.Equal(t, 0, a.Score)
	assert.True(t, a.NeedsManualGrading)
	assert.True(t, a.AwaitingHumanScore())
}

func TestGradeAttemptManualFlagIgnoredForOtherTypes(t *testing.T) {
	q := question("q", model.SingleChoice, "A")
	q.ManualGrading = true

	a := GradeAttempt(&q, SubmittedAttempt{QuestionID: "q", UserAnswer: "A", MaxScore: 2})

	assert.True(t, a.IsCorrect)
	assert.False(t, a.NeedsManualGrading)
}

func TestGradeAttemptClampsNegativeMaxScore(t *testing.T) {
	q := question("q", model.SingleChoice, "A")
	a := GradeAttempt(&q, SubmittedAttempt{QuestionID: "q", UserAnswer: "A", MaxScore: -3})

	assert.True(t, a.IsCorrect)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, 0, a.MaxScore)
}

func TestGradeMissingQuestionIsUnavailable(t *testing.T) {
	e := gradingEngine(question("q1", model.SingleChoice, "A"))

	out := e.Grade(context.Background(), []SubmittedAttempt{
		{QuestionID: "q1", UserAnswer: "A", MaxScore: 2},
		{QuestionID: "ghost", UserAnswer: "A", MaxScore: 3},
	})

	require.Len(t, out.Attempts, 2)
	assert.True(t, out.Attempts[0].IsCorrect)
	ghost := out.Attempts[1]
	assert.True(t, ghost.Unavailable)
	assert.Equal(t, noteUnavailable, ghost.Note)
	assert.False(t, ghost.IsCorrect)
	assert.Equal(t, 0, ghost.Score)
	assert.Equal(t, 2, out.Score)
	assert.Equal(t, 5, out.MaxScore)
	assert.Equal(t, model.StatusCompleted, out.Status)
}

func TestGradeDeletedQuestionStillGradable(t *testing.T) {
	q := question("q1", model.SingleChoice, "A")
	q.DeletedAt.Valid = true

	out := gradingEngine(q).Grade(context.Background(), []SubmittedAttempt{{QuestionID: "q1", UserAnswer: "A", MaxScore: 1}})

	assert.True(t, out.Attempts[0].IsCorrect)
	assert.False(t, out.Attempts[0].Unavailable)
}

func TestGradePreservesOrderAndStatus(t *testing.T) {
	essay := question("essay", model.ShortAnswer, "x")
	essay.ManualGrading = true
	e := gradingEngine(
		question("q1", model.SingleChoice, "A"),
		question("q2", model.MultiSelect, `["A","B"]`),
		essay,
	)

	out := e.Grade(context.Background(), []SubmittedAttempt{
		{QuestionID: "essay", UserAnswer: "x", MaxScore: 10},
		{QuestionID: "q2", UserAnswer: `["B","A"]`, MaxScore: 3},
		{QuestionID: "q1", UserAnswer: "C", MaxScore: 2},
	})

	require.Len(t, out.Attempts, 3)
	assert.Equal(t, "essay", out.Attempts[0].QuestionID)
	assert.Equal(t, "q2", out.Attempts[1].QuestionID)
	assert.Equal(t, "q1", out.Attempts[2].QuestionID)
	assert.Equal(t, 3, out.Score)
	assert.Equal(t, 15, out.MaxScore)
	assert.Equal(t, model.StatusPendingGrading, out.Status)
}

func TestGradeIsIdempotent(t *testing.T) {
	e := gradingEngine(
		question("q1", model.SingleChoice, "A"),
		question("q2", model.FillBlank, `["北京 市","Paris"]`),
		question("q3", model.MultiSelect, `["C","A"]`),
	)
	submitted := []SubmittedAttempt{
		{QuestionID: "q1", UserAnswer: "A", MaxScore: 1},
		{QuestionID: "q2", UserAnswer: "北京市||| paris", MaxScore: 2},
		{QuestionID: "q3", UserAnswer: `["A"]`, MaxScore: 3},
	}

	first := e.Grade(context.Background(), submitted)
	second := e.Grade(context.Background(), submitted)

	require.Len(t, second.Attempts, len(first.Attempts))
	for i := range first.Attempts {
		assert.Equal(t, first.Attempts[i].IsCorrect, second.Attempts[i].IsCorrect)
		assert.Equal(t, first.Attempts[i].Score, second.Attempts[i].Score)
	}
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, 3, first.Score)
}

func TestGradeEmptySubmission(t *testing.T) {
	out := gradingEngine().Grade(context.Background(), nil)

	assert.Empty(t, out.Attempts)
	assert.Equal(t, 0, out.Score)
	assert.Equal(t, model.StatusCompleted, out.Status)
}
