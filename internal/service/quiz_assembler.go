package service

import (
	"context"

	"quiz_engine/internal/model"
	"quiz_engine/pkg/logger"
	"quiz_engine/pkg/monitoring"

	"go.uber.org/zap"
)

// AssembledQuiz 组卷结果。Partial 表示有题目因拉取失败或已被删除而缺失
type AssembledQuiz struct {
	Questions     []model.ClientQuestion `json:"questions"`
	SelectedCount int                    `json:"selectedCount"`
	MissingIDs    []string               `json:"missingIds,omitempty"`
	SkippedChunks int                    `json:"skippedChunks,omitempty"`
	Partial       bool                   `json:"partial"`
}

type QuizAssembler struct {
	fetcher questionBatchFetcher
}

func NewQuizAssembler(fetcher questionBatchFetcher) *QuizAssembler {
	return &QuizAssembler{fetcher: fetcher}
}

// Assemble 按抽题顺序输出题目，分值取所属部分的配置，标准答案一律清空
func (a *QuizAssembler) Assemble(ctx context.Context, selection *SelectionResult) *AssembledQuiz {
	fetched := a.fetcher.FetchQuestions(ctx, selection.IDs(), false)

	out := &AssembledQuiz{
		Questions:     make([]model.ClientQuestion, 0, len(selection.Items)),
		SelectedCount: len(selection.Items),
		MissingIDs:    fetched.MissingIDs,
		SkippedChunks: fetched.SkippedChunks,
		Partial:       fetched.Partial(),
	}
	for _, item := range selection.Items {
		q, ok := fetched.Questions[item.QuestionID]
		if !ok {
			continue
		}
		out.Questions = append(out.Questions, toClientQuestion(&q, item.Part, len(out.Questions)+1))
	}

	if out.Partial {
		monitoring.PartialAssemblies.Inc()
		logger.Log.Warn("quiz assembled with missing questions",
			zap.Int("selected", out.SelectedCount),
			zap.Int("returned", len(out.Questions)),
			zap.Int("skippedChunks", out.SkippedChunks),
		)
	}
	return out
}

func toClientQuestion(q *model.Question, part model.Part, order int) model.ClientQuestion {
	cq := model.ClientQuestion{
		ID:            q.ID,
		Type:          q.Type,
		Text:          q.Text,
		Options:       q.Options,
		Images:        q.Images,
		CorrectAnswer: nil,
		Score:         part.Score,
		ManualGrading: q.RequiresManualGrading(),
		PartID:        part.ID,
		PartName:      part.Name,
		Order:         order,
	}
	if q.Type == model.FillBlank {
		cq.BlankCount = BlankCount(q.CorrectAnswer)
	}
	return cq
}
