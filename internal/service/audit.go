package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz_engine/internal/model"
	"quiz_engine/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type AuditAction string

const (
	AuditResultCreated   AuditAction = "quiz_result.created"
	AuditScoreCorrected  AuditAction = "quiz_result.score_corrected"
	defaultAuditDeadline             = 3 * time.Second
)

// AuditEntry 一次成绩变更的可读差异
type AuditEntry struct {
	Action     AuditAction `json:"action"`
	ResultID   string      `json:"resultId"`
	OperatorID string      `json:"operatorId"`
	Summary    string      `json:"summary"`
	Changes    []string    `json:"changes"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Auditor 审计通道。失败只会被记录，不影响已提交的写入
type Auditor interface {
	Emit(ctx context.Context, entry AuditEntry) error
}

// DiffFunc 计算写入前后的差异，before 为 nil 表示新建
type DiffFunc func(before, after *model.QuizResult) ([]string, error)

// DiffResults 默认的差异计算：汇总字段加逐题分数变化
func DiffResults(before, after *model.QuizResult) ([]string, error) {
	if after == nil {
		return nil, fmt.Errorf("diff: missing result after write")
	}
	if before == nil {
		return []string{fmt.Sprintf("created: score %d/%d, status %s, passed %t, %d attempts",
			after.Score, after.MaxScore, after.Status, after.IsPassed, len(after.Attempts))}, nil
	}

	var changes []string
	if before.Score != after.Score {
		changes = append(changes, fmt.Sprintf("score: %d -> %d", before.Score, after.Score))
	}
	if before.MaxScore != after.MaxScore {
		changes = append(changes, fmt.Sprintf("maxScore: %d -> %d", before.MaxScore, after.MaxScore))
	}
	if before.Status != after.Status {
		changes = append(changes, fmt.Sprintf("status: %s -> %s", before.Status, after.Status))
	}
	if before.IsPassed != after.IsPassed {
		changes = append(changes, fmt.Sprintf("isPassed: %t -> %t", before.IsPassed, after.IsPassed))
	}

	for _, a := range after.Attempts {
		i := before.FindAttempt(a.QuestionID)
		if i < 0 {
			changes = append(changes, fmt.Sprintf("attempt %s: added", a.QuestionID))
			continue
		}
		b := before.Attempts[i]
		if b.Score != a.Score {
			changes = append(changes, fmt.Sprintf("attempt %s score: %d -> %d", a.QuestionID, b.Score, a.Score))
		}
		if b.IsCorrect != a.IsCorrect {
			changes = append(changes, fmt.Sprintf("attempt %s isCorrect: %t -> %t", a.QuestionID, b.IsCorrect, a.IsCorrect))
		}
		if !b.ManuallyGraded && a.ManuallyGraded {
			changes = append(changes, fmt.Sprintf("attempt %s: manually graded", a.QuestionID))
		}
	}
	return changes, nil
}

type auditLogWriter interface {
	Create(ctx context.Context, entry *model.AuditLog) error
}

// DBAuditor 写入 audit_logs 表
type DBAuditor struct {
	repo auditLogWriter
}

func NewDBAuditor(repo auditLogWriter) *DBAuditor {
	return &DBAuditor{repo: repo}
}

func (a *DBAuditor) Emit(ctx context.Context, entry AuditEntry) error {
	return a.repo.Create(ctx, &model.AuditLog{
		Action:     string(entry.Action),
		ResultID:   entry.ResultID,
		OperatorID: entry.OperatorID,
		Summary:    entry.Summary,
		Changes:    entry.Changes,
	})
}

// RedisAuditor 追加到 redis stream
type RedisAuditor struct {
	client *redis.Client
	stream string
}

func NewRedisAuditor(client *redis.Client, stream string) *RedisAuditor {
	return &RedisAuditor{client: client, stream: stream}
}

func (a *RedisAuditor) Emit(ctx context.Context, entry AuditEntry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}
	return a.client.XAdd(ctx, &redis.XAddArgs{
		Stream: a.stream,
		Values: map[string]interface{}{
			"action":     string(entry.Action),
			"resultId":   entry.ResultID,
			"operatorId": entry.OperatorID,
			"summary":    entry.Summary,
			"changes":    string(changes),
			"occurredAt": entry.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Err()
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// AMQPAuditor 以 action 作为 routing key 发布
type AMQPAuditor struct {
	publisher eventPublisher
}

func NewAMQPAuditor(publisher eventPublisher) *AMQPAuditor {
	return &AMQPAuditor{publisher: publisher}
}

func (a *AMQPAuditor) Emit(ctx context.Context, entry AuditEntry) error {
	return a.publisher.Publish(ctx, string(entry.Action), entry)
}

type LogAuditor struct{}

func (LogAuditor) Emit(_ context.Context, entry AuditEntry) error {
	logger.Log.Info("audit",
		zap.String("action", string(entry.Action)),
		zap.String("resultId", entry.ResultID),
		zap.String("operatorId", entry.OperatorID),
		zap.Strings("changes", entry.Changes),
	)
	return nil
}
