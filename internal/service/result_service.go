package service

import (
	"context"
	"fmt"
	"time"

	"quiz_engine/internal/model"
	"quiz_engine/internal/util"
	"quiz_engine/pkg/logger"
	"quiz_engine/pkg/monitoring"

	"go.uber.org/zap"
)

type resultStore interface {
	Create(ctx context.Context, result *model.QuizResult) error
	Update(ctx context.Context, result *model.QuizResult) error
	FindByID(ctx context.Context, id string) (*model.QuizResult, error)
	ListByStatus(ctx context.Context, status model.ResultStatus, page, limit int) ([]model.QuizResult, int64, error)
}

// AuditOutcome 只用于观察，永远不会变成调用方的错误
type AuditOutcome struct {
	Emitted bool
	Changes []string
	Err     error
}

// OperationOutcome 写入已提交；Audit 描述之后的审计是否成功
type OperationOutcome struct {
	Result *model.QuizResult
	Audit  AuditOutcome
}

type ResultOption func(*ResultService)

func WithDiffFunc(fn DiffFunc) ResultOption {
	return func(s *ResultService) { s.diff = fn }
}

func WithAuditTimeout(d time.Duration) ResultOption {
	return func(s *ResultService) { s.auditTimeout = d }
}

func WithReadRetry(policy RetryPolicy) ResultOption {
	return func(s *ResultService) { s.retry = func() RetryPolicy { return policy } }
}

// WithRetrySource 每次读取时取当前重试策略，用于配置热更新
func WithRetrySource(fn func() RetryPolicy) ResultOption {
	return func(s *ResultService) { s.retry = fn }
}

// ResultService 成绩写入：单条原子写，提交之后再做尽力而为的审计
type ResultService struct {
	store        resultStore
	auditor      Auditor
	diff         DiffFunc
	auditTimeout time.Duration
	retry        func() RetryPolicy
}

func NewResultService(store resultStore, auditor Auditor, opts ...ResultOption) *ResultService {
	s := &ResultService{
		store:        store,
		auditor:      auditor,
		diff:         DiffResults,
		auditTimeout: defaultAuditDeadline,
		retry:        func() RetryPolicy { return RetryPolicy{Attempts: 1} },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persist 保存新成绩。总分、状态与是否通过都从作答数组重新计算，不信任调用方传入的值。
func (s *ResultService) Persist(ctx context.Context, result *model.QuizResult, operatorID string) (*OperationOutcome, error) {
	if result == nil {
		return nil, util.NewValidationError("result", "is required")
	}
	if err := validateAttempts(result.Attempts); err != nil {
		return nil, err
	}

	result.Status = ""
	result.Recompute()

	if err := s.store.Create(ctx, result); err != nil {
		return nil, &util.PersistenceError{Op: "create quiz result", Err: err}
	}

	return &OperationOutcome{
		Result: result,
		Audit:  s.audit(ctx, AuditResultCreated, operatorID, nil, result),
	}, nil
}

// CorrectSingleScore 修改单题得分并整体重算。并发修改同一成绩以最后一次写入为准。
func (s *ResultService) CorrectSingleScore(ctx context.Context, resultID, questionID string, newScore int, operatorID string) (*OperationOutcome, error) {
	result, err := s.Get(ctx, resultID)
	if err != nil {
		return nil, err
	}

	i := result.FindAttempt(questionID)
	if i < 0 {
		return nil, util.ErrAttemptNotFound
	}
	attempt := &result.Attempts[i]
	if newScore < 0 || newScore > attempt.MaxScore {
		return nil, util.NewValidationError("score", "must be between 0 and %d", attempt.MaxScore)
	}

	before := result.Clone()
	attempt.Score = newScore
	attempt.IsCorrect = attempt.MaxScore > 0 && newScore == attempt.MaxScore
	attempt.ManuallyGraded = true
	result.Recompute()

	if err := s.store.Update(ctx, result); err != nil {
		return nil, &util.PersistenceError{Op: "update quiz result", Err: err}
	}

	return &OperationOutcome{
		Result: result,
		Audit:  s.audit(ctx, AuditScoreCorrected, operatorID, before, result),
	}, nil
}

func (s *ResultService) Get(ctx context.Context, id string) (*model.QuizResult, error) {
	return retryRead(ctx, "find_result", s.retry(), func(ctx context.Context) (*model.QuizResult, error) {
		return s.store.FindByID(ctx, id)
	})
}

func (s *ResultService) ListPending(ctx context.Context, page, limit int) ([]model.QuizResult, int64, error) {
	return s.store.ListByStatus(ctx, model.StatusPendingGrading, page, limit)
}

func validateAttempts(attempts []model.Attempt) error {
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
		if a.Score < 0 || a.Score > a.MaxScore {
			return util.NewValidationError(field, "score must be between 0 and %d", a.MaxScore)
		}
	}
	return nil
}

// audit 在写入提交之后运行，错误与 panic 都在这里截住
func (s *ResultService) audit(ctx context.Context, action AuditAction, operatorID string, before, after *model.QuizResult) (out AuditOutcome) {
	if s.auditor == nil {
		return out
	}
	// 请求结束不应打断审计
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			out = AuditOutcome{Err: &util.AuditError{Stage: "panic", Err: fmt.Errorf("%v", rec)}}
		}
		if out.Err != nil {
			monitoring.AuditFailures.WithLabelValues(string(action)).Inc()
			logger.Log.Error("audit failed after successful write",
				zap.String("action", string(action)),
				zap.String("resultId", after.ID),
				zap.Error(out.Err),
			)
		}
	}()

	changes, err := s.diff(before, after)
	if err != nil {
		return AuditOutcome{Err: &util.AuditError{Stage: "diff", Err: err}}
	}

	entry := AuditEntry{
		Action:     action,
		ResultID:   after.ID,
		OperatorID: operatorID,
		Summary:    fmt.Sprintf("%s: %d change(s), score %d/%d", action, len(changes), after.Score, after.MaxScore),
		Changes:    changes,
		OccurredAt: time.Now(),
	}
	if err := s.auditor.Emit(ctx, entry); err != nil {
		return AuditOutcome{Changes: changes, Err: &util.AuditError{Stage: "emit", Err: err}}
	}
	return AuditOutcome{Emitted: true, Changes: changes}
}
