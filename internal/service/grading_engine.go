package service

import (
	"context"
	"sort"

	"quiz_engine/internal/model"
	"quiz_engine/pkg/monitoring"
)

const (
	noteUnavailable     = "question unavailable"
	noteUnsupportedType = "unsupported question type"
)

// SubmittedAttempt 学生提交的单题答案
type SubmittedAttempt struct {
	QuestionID string `json:"questionId" binding:"required"`
	UserAnswer string `json:"userAnswer"`
	MaxScore   int    `json:"maxScore"`
	PartName   string `json:"partName,omitempty"`
}

type GradeOutcome struct {
	Attempts []model.Attempt    `json:"attempts"`
	Score    int                `json:"score"`
	MaxScore int                `json:"maxScore"`
	Status   model.ResultStatus `json:"status"`
	// Degraded 为 true 时部分题目因拉取失败被判为不可用
	Degraded bool `json:"degraded,omitempty"`
}

type questionBatchFetcher interface {
	FetchQuestions(ctx context.Context, ids []string, includeDeleted bool) *FetchResult
}

// GradingEngine 无状态，可被多个请求共享
type GradingEngine struct {
	fetcher questionBatchFetcher
}

func NewGradingEngine(fetcher questionBatchFetcher) *GradingEngine {
	return &GradingEngine{fetcher: fetcher}
}

// Grade 一次性批量拉取全部题目（包含已删除的），逐题评分。不会因为数据异常返回错误。
func (e *GradingEngine) Grade(ctx context.Context, submitted []SubmittedAttempt) *GradeOutcome {
	return e.gradeFetched(e.fetch(ctx, submitted), submitted)
}

func (e *GradingEngine) fetch(ctx context.Context, submitted []SubmittedAttempt) *FetchResult {
	ids := make([]string, len(submitted))
	for i, s := range submitted {
		ids[i] = s.QuestionID
	}
	return e.fetcher.FetchQuestions(ctx, ids, true)
}

func (e *GradingEngine) gradeFetched(fetched *FetchResult, submitted []SubmittedAttempt) *GradeOutcome {
	attempts := make([]model.Attempt, len(submitted))
	for i, s := range submitted {
		var q *model.Question
		if found, ok := fetched.Questions[s.QuestionID]; ok {
			q = &found
		}
		attempts[i] = GradeAttempt(q, s)
		recordGraded(&attempts[i])
	}

	r := model.QuizResult{Attempts: attempts}
	r.Recompute()
	return &GradeOutcome{
		Attempts: attempts,
		Score:    r.Score,
		MaxScore: r.MaxScore,
		Status:   r.Status,
		Degraded: fetched.SkippedChunks > 0,
	}
}

// GradeAttempt 对单题评分，q 为 nil 表示题目不存在
func GradeAttempt(q *model.Question, s SubmittedAttempt) model.Attempt {
	maxScore := s.MaxScore
	if maxScore < 0 {
		maxScore = 0
	}
	a := model.Attempt{
		QuestionID: s.QuestionID,
		PartName:   s.PartName,
		UserAnswer: s.UserAnswer,
		MaxScore:   maxScore,
	}
	if q == nil {
		a.Unavailable = true
		a.Note = noteUnavailable
		return a
	}

	a.QuestionType = q.Type
	a.SnapshotText = q.Text
	a.SnapshotImages = q.Images
	a.SnapshotAnswer = q.CorrectAnswer
	a.SnapshotExplain = q.Explanation

	switch q.Type {
	case model.SingleChoice, model.TrueFalse:
		a.IsCorrect = s.UserAnswer == q.CorrectAnswer
	case model.MultiSelect:
		a.IsCorrect = sameOptionSet(s.UserAnswer, q.CorrectAnswer)
	case model.FillBlank:
		a.IsCorrect = sameBlanks(s.UserAnswer, q.CorrectAnswer)
	case model.ShortAnswer:
		if q.RequiresManualGrading() {
			// 等待人工评分，自动评分阶段一律 0 分
			a.NeedsManualGrading = true
			return a
		}
		a.IsCorrect = sameText(s.UserAnswer, q.CorrectAnswer)
	default:
		a.Note = noteUnsupportedType
	}

	if a.IsCorrect {
		a.Score = maxScore
	}
	return a
}

func sameOptionSet(submitted, correct string) bool {
	got, err := DecodeAnswer(model.MultiSelect, submitted)
	if err != nil {
		return false
	}
	want, err := DecodeAnswer(model.MultiSelect, correct)
	if err != nil {
		return false
	}
	g := sortedCopy(got.Values())
	w := sortedCopy(want.Values())
	if len(g) != len(w) {
		return false
	}
	for i := range g {
		if g[i] != w[i] {
			return false
		}
	}
	return true
}

func sameBlanks(submitted, correct string) bool {
	got, _ := DecodeAnswer(model.FillBlank, submitted)
	want, _ := DecodeAnswer(model.FillBlank, correct)
	g, w := got.Values(), want.Values()
	if len(g) != len(w) || len(w) == 0 {
		return false
	}
	for i := range w {
		if !sameText(g[i], w[i]) {
			return false
		}
	}
	return true
}

// sameText 归一化后比较；归一化为空的答案永远不算对
func sameText(submitted, correct string) bool {
	want := NormalizeText(correct)
	return want != "" && NormalizeText(submitted) == want
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func recordGraded(a *model.Attempt) {
	outcome := "incorrect"
	switch {
	case a.Unavailable:
		outcome = "unavailable"
	case a.NeedsManualGrading:
		outcome = "manual"
	case a.IsCorrect:
		outcome = "correct"
	}
	qt := string(a.QuestionType)
	if qt == "" {
		qt = "unknown"
	}
	monitoring.GradedAttempts.WithLabelValues(qt, outcome).Inc()
}
