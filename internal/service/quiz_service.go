package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quiz_engine/internal/model"
	"quiz_engine/internal/util"
	"quiz_engine/pkg/monitoring"
	"quiz_engine/pkg/tracing"
)

type configStore interface {
	GetConfig(ctx context.Context, id string, includeDeleted bool) (*model.QuizConfig, error)
}

type auditLogReader interface {
	ListByResult(ctx context.Context, resultID string) ([]model.AuditLog, error)
}

// GeneratedQuiz 返回给答题端的试卷
type GeneratedQuiz struct {
	ConfigID       string                 `json:"configId"`
	ConfigName     string                 `json:"configName"`
	PassingScore   int                    `json:"passingScore"`
	TotalQuestions int                    `json:"totalQuestions"`
	Questions      []model.ClientQuestion `json:"questions"`
	Partial        bool                   `json:"partial"`
	MissingIDs     []string               `json:"missingIds,omitempty"`
	Shortfalls     []PartShortfall        `json:"shortfalls,omitempty"`
	FailedParts    []string               `json:"failedParts,omitempty"`
}

type SubmitRequest struct {
	Attempts  []SubmittedAttempt `json:"attempts" binding:"required"`
	StartedAt *time.Time         `json:"startedAt"`
}

// QuizService 组卷、评分、成绩的对外入口
type QuizService struct {
	configs   configStore
	selector  *PartSelector
	assembler *QuizAssembler
	grader    *GradingEngine
	results   *ResultService
	auditLogs auditLogReader
}

func NewQuizService(configs configStore, selector *PartSelector, assembler *QuizAssembler, grader *GradingEngine, results *ResultService, auditLogs auditLogReader) *QuizService {
	return &QuizService{
		configs:   configs,
		selector:  selector,
		assembler: assembler,
		grader:    grader,
		results:   results,
		auditLogs: auditLogs,
	}
}

func (s *QuizService) GenerateQuiz(ctx context.Context, configID string) (quiz *GeneratedQuiz, err error) {
	ctx, span := tracing.Start(ctx, "QuizService.GenerateQuiz")
	defer func() { tracing.End(span, err) }()

	cfg, err := s.loadConfig(ctx, configID, false)
	if err != nil {
		return nil, err
	}
	if !cfg.IsPublished {
		return nil, util.ErrConfigNotPublished
	}
	total, err := validateQuizConfig(cfg)
	if err != nil {
		return nil, err
	}

	selection := s.selector.Select(ctx, cfg.Parts)
	assembled := s.assembler.Assemble(ctx, selection)
	monitoring.QuizGenerated.Inc()

	return &GeneratedQuiz{
		ConfigID:       cfg.ID,
		ConfigName:     cfg.Name,
		PassingScore:   cfg.PassingScore,
		TotalQuestions: total,
		Questions:      assembled.Questions,
		Partial:        assembled.Partial || len(selection.Shortfalls) > 0 || len(selection.FailedParts) > 0,
		MissingIDs:     assembled.MissingIDs,
		Shortfalls:     selection.Shortfalls,
		FailedParts:    selection.FailedParts,
	}, nil
}

// GradeSubmission 只评分不保存
func (s *QuizService) GradeSubmission(ctx context.Context, attempts []SubmittedAttempt) (outcome *GradeOutcome, err error) {
	ctx, span := tracing.Start(ctx, "QuizService.GradeSubmission")
	defer func() { tracing.End(span, err) }()

	if err := validateSubmission(attempts); err != nil {
		return nil, err
	}
	return s.grader.Grade(ctx, attempts), nil
}

// SubmitQuiz 评分并保存。每题所属部分与满分由服务端按配置确定，不信任客户端传入的 partName 与 maxScore
func (s *QuizService) SubmitQuiz(ctx context.Context, userID, configID string, req SubmitRequest) (result *model.QuizResult, err error) {
	ctx, span := tracing.Start(ctx, "QuizService.SubmitQuiz")
	defer func() { tracing.End(span, err) }()

	// 答题过程中配置被删除，已开始的测验仍可提交
	cfg, err := s.loadConfig(ctx, configID, true)
	if err != nil {
		return nil, err
	}
	if err := validateSubmission(req.Attempts); err != nil {
		return nil, err
	}

	attempts := make([]SubmittedAttempt, len(req.Attempts))
	copy(attempts, req.Attempts)

	fetched := s.grader.fetch(ctx, attempts)
	if err := assignParts(attempts, fetched, cfg.Parts); err != nil {
		return nil, err
	}

	outcome := s.grader.gradeFetched(fetched, attempts)

	result = &model.QuizResult{
		UserID:       userID,
		ConfigID:     cfg.ID,
		ConfigName:   cfg.Name,
		Attempts:     outcome.Attempts,
		PassingScore: cfg.PassingScore,
	}
	if req.StartedAt != nil && !req.StartedAt.IsZero() {
		started := *req.StartedAt
		result.StartedAt = &started
		if d := time.Since(started); d > 0 {
			result.DurationSeconds = int(d.Seconds())
		}
	}

	op, err := s.results.Persist(ctx, result, userID)
	if err != nil {
		return nil, err
	}
	return op.Result, nil
}

func (s *QuizService) PersistResult(ctx context.Context, result *model.QuizResult, operatorID string) (stored *model.QuizResult, err error) {
	ctx, span := tracing.Start(ctx, "QuizService.PersistResult")
	defer func() { tracing.End(span, err) }()

	op, err := s.results.Persist(ctx, result, operatorID)
	if err != nil {
		return nil, err
	}
	return op.Result, nil
}

func (s *QuizService) CorrectSingleScore(ctx context.Context, resultID, questionID string, newScore int, operatorID string) (stored *model.QuizResult, err error) {
	ctx, span := tracing.Start(ctx, "QuizService.CorrectSingleScore")
	defer func() { tracing.End(span, err) }()

	op, err := s.results.CorrectSingleScore(ctx, resultID, questionID, newScore, operatorID)
	if err != nil {
		return nil, err
	}
	return op.Result, nil
}

// GetResult 学生只能查看自己的成绩，老师和管理员可以查看全部
func (s *QuizService) GetResult(ctx context.Context, resultID, requesterID string, staff bool) (*model.QuizResult, error) {
	result, err := s.results.Get(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if !staff && result.UserID != requesterID {
		return nil, util.ErrPermissionDenied
	}
	return result, nil
}

func (s *QuizService) ListPendingResults(ctx context.Context, page, limit int) ([]model.QuizResult, int64, error) {
	return s.results.ListPending(ctx, page, limit)
}

func (s *QuizService) ListAuditLogs(ctx context.Context, resultID string) ([]model.AuditLog, error) {
	if _, err := s.results.Get(ctx, resultID); err != nil {
		return nil, err
	}
	return s.auditLogs.ListByResult(ctx, resultID)
}

func (s *QuizService) loadConfig(ctx context.Context, configID string, includeDeleted bool) (*model.QuizConfig, error) {
	cfg, err := retryRead(ctx, "get_config", s.selector.readRetry(), func(ctx context.Context) (*model.QuizConfig, error) {
		return s.configs.GetConfig(ctx, configID, includeDeleted)
	})
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, util.ErrConfigNotFound
	}
	return cfg, nil
}

// validateQuizConfig 返回实际要抽取的总题数
func validateQuizConfig(cfg *model.QuizConfig) (int, error) {
	if len(cfg.Parts) == 0 {
		return 0, util.NewValidationError("parts", "at least one part is required")
	}
	for i, p := range cfg.Parts {
		field := fmt.Sprintf("parts[%d]", i)
		if p.Count < 0 {
			return 0, util.NewValidationError(field, "count must not be negative")
		}
		if p.Score < 0 {
			return 0, util.NewValidationError(field, "score must not be negative")
		}
		if err := validateFilter(field+".filter", p.Filter); err != nil {
			return 0, err
		}
	}

	total := cfg.RequestedTotal()
	if cfg.TotalQuestions != 0 && cfg.TotalQuestions != total {
		return 0, util.NewValidationError("totalQuestions", "is %d but parts request %d", cfg.TotalQuestions, total)
	}
	return total, nil
}

func validateFilter(field string, f model.PartFilter) error {
	lists := map[string][]string{
		"subjects":     f.Subjects,
		"difficulties": f.Difficulties,
		"gradeLevels":  f.GradeLevels,
		"categories":   f.Categories,
	}
	for name, values := range lists {
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				return util.NewValidationError(field+"."+name, "contains a blank value")
			}
		}
	}
	for _, t := range f.QuestionTypes {
		if !t.Valid() {
			return util.NewValidationError(field+".questionTypes", "unknown question type %q", t)
		}
	}
	return nil
}

func validateSubmission(attempts []SubmittedAttempt) error {
	seen := make(map[string]struct{}, len(attempts))
	for i, a := range attempts {
		field := fmt.Sprintf("attempts[%d]", i)
		if a.QuestionID == "" {
			return util.NewValidationError(field, "questionId is required")
		}
		if _, dup := seen[a.QuestionID]; dup {
			return util.NewValidationError(field, "duplicate questionId %s", a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
		if a.MaxScore < 0 {
			return util.NewValidationError(field, "maxScore must not be negative")
		}
	}
	return nil
}

// assignParts 为每题确定所属部分并以部分分值作为满分。
// 题目必须满足该部分的筛选条件，且每个部分的作答数不超过其题量。
// 先处理标注了部分的题目，未标注的再按声明顺序归入第一个匹配且仍有余量的部分。
func assignParts(attempts []SubmittedAttempt, fetched *FetchResult, parts []model.Part) error {
	questions := make([]model.Question, len(attempts))
	for i, a := range attempts {
		q, ok := fetched.Questions[a.QuestionID]
		if !ok {
			if fetched.SkippedChunks > 0 {
				return &util.TransientError{Op: "submit quiz", Err: fmt.Errorf("question %s could not be loaded", a.QuestionID)}
			}
			return util.NewValidationError(fmt.Sprintf("attempts[%d]", i), "question %s does not exist", a.QuestionID)
		}
		questions[i] = q
	}

	used := make([]int, len(parts))
	assign := func(i, idx int) {
		used[idx]++
		attempts[i].PartName = parts[idx].Name
		attempts[i].MaxScore = parts[idx].Score
	}

	pending := make([]int, 0, len(attempts))
	for i := range attempts {
		name := attempts[i].PartName
		if name == "" {
			pending = append(pending, i)
			continue
		}
		field := fmt.Sprintf("attempts[%d]", i)
		idx := partIndex(parts, name)
		if idx < 0 {
			return util.NewValidationError(field, "unknown part %q", name)
		}
		if !parts[idx].Filter.Matches(&questions[i]) {
			return util.NewValidationError(field, "question %s does not belong to part %q", attempts[i].QuestionID, name)
		}
		if used[idx] >= parts[idx].Count {
			return util.NewValidationError(field, "part %q accepts at most %d answers", name, parts[idx].Count)
		}
		assign(i, idx)
	}

	for _, i := range pending {
		idx := -1
		for j := range parts {
			if used[j] < parts[j].Count && parts[j].Filter.Matches(&questions[i]) {
				idx = j
				break
			}
		}
		if idx < 0 {
			return util.NewValidationError(fmt.Sprintf("attempts[%d]", i), "question %s does not belong to any open part of this quiz", attempts[i].QuestionID)
		}
		assign(i, idx)
	}
	return nil
}

func partIndex(parts []model.Part, name string) int {
	for i := range parts {
		if parts[i].Name == name {
			return i
		}
	}
	return -1
}
