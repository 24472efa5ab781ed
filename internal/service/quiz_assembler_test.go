package service

import (
	"context"
	"testing"

	"quiz_engine/internal/model"
	"quiz_engine/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleClearsAnswersAndAppliesPartScore(t *testing.T) {
	blank := question("q2", model.FillBlank, `["北京","上海"]`)
	manual := question("q3", model.ShortAnswer, "essay")
	manual.ManualGrading = true
	src := newFakeQuestionSource(
		question("q1", model.SingleChoice, "A"),
		blank,
		manual,
	)
	a := NewQuizAssembler(NewQuestionFetcher(src, testFetchOptions()))

	pA, pB := part("A", "x", 2, 5), part("B", "y", 1, 10)
	sel := &SelectionResult{Items: []Selection{
		{QuestionID: "q2", Part: pA},
		{QuestionID: "q1", Part: pA},
		{QuestionID: "q3", Part: pB},
	}}

	quiz := a.Assemble(context.Background(), sel)

	require.Len(t, quiz.Questions, 3)
	assert.False(t, quiz.Partial)
	for i, q := range quiz.Questions {
		assert.Nil(t, q.CorrectAnswer, "question %s leaks its answer", q.ID)
		assert.Equal(t, i+1, q.Order)
	}
	assert.Equal(t, []string{"q2", "q1", "q3"}, []string{quiz.Questions[0].ID, quiz.Questions[1].ID, quiz.Questions[2].ID})

	assert.Equal(t, 5, quiz.Questions[0].Score)
	assert.Equal(t, 2, quiz.Questions[0].BlankCount)
	assert.Equal(t, "Part A", quiz.Questions[0].PartName)
	assert.Equal(t, 0, quiz.Questions[1].BlankCount)
	assert.Equal(t, 10, quiz.Questions[2].Score)
	assert.True(t, quiz.Questions[2].ManualGrading)
}

func TestAssembleReportsPartialResult(t *testing.T) {
	src := newFakeQuestionSource(question("q1", model.SingleChoice, "A"), question("q2", model.SingleChoice, "B"))
	src.chunkErr = func(chunk []string, _ int) error {
		if chunk[0] == "q2" {
			return &util.TransientError{Op: "test", Err: errBoom}
		}
		return nil
	}
	opts := testFetchOptions()
	opts.ChunkSize = 1
	a := NewQuizAssembler(NewQuestionFetcher(src, opts))

	p := part("A", "x", 3, 1)
	quiz := a.Assemble(context.Background(), &SelectionResult{Items: []Selection{
		{QuestionID: "q1", Part: p},
		{QuestionID: "q2", Part: p},
		{QuestionID: "missing", Part: p},
	}})

	assert.True(t, quiz.Partial)
	assert.Equal(t, 1, quiz.SkippedChunks)
	assert.ElementsMatch(t, []string{"q2", "missing"}, quiz.MissingIDs)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "q1", quiz.Questions[0].ID)
	assert.Equal(t, 3, quiz.SelectedCount)
}

func TestBlankCount(t *testing.T) {
	cases := []struct {
		answer string
		want   int
	}{
		{`["a","b","c"]`, 3},
		{`[1, "x"]`, 2},
		{"a|||b", 2},
		{"just one", 1},
		{"", 1},
		{"[]", 1},
		{"[not json", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BlankCount(tc.answer), tc.answer)
	}
}
