package model

import (
	"time"

	"gorm.io/datatypes"
)

type ResultStatus string

const (
	StatusPendingGrading ResultStatus = "pending_grading"
	StatusCompleted      ResultStatus = "completed"
)

// Attempt 单题作答记录。Snapshot* 字段在评分时从题目复制，之后题目被修改或删除也不影响回看
type Attempt struct {
	QuestionID         string         `json:"questionId"`
	QuestionType       QuestionType   `json:"questionType"`
	PartName           string         `json:"partName,omitempty"`
	UserAnswer         string         `json:"userAnswer"`
	IsCorrect          bool           `json:"isCorrect"`
	Score              int            `json:"score"`
	MaxScore           int            `json:"maxScore"`
	NeedsManualGrading bool           `json:"needsManualGrading"`
	ManuallyGraded     bool           `json:"manuallyGraded"`
	Unavailable        bool           `json:"unavailable,omitempty"`
	Note               string         `json:"note,omitempty"`
	SnapshotText       string         `json:"snapshotText"`
	SnapshotImages     datatypes.JSON `json:"snapshotImages,omitempty"`
	SnapshotAnswer     string         `json:"snapshotAnswer"`
	SnapshotExplain    string         `json:"snapshotExplanation"`
}

// AwaitingHumanScore 人工评分题尚未给分
func (a *Attempt) AwaitingHumanScore() bool {
	return a.NeedsManualGrading && !a.ManuallyGraded
}

// QuizResult 一次测验的成绩
// swagger:model QuizResult
type QuizResult struct {
	UUIDBase
	UserID          string                       `gorm:"size:64;index" json:"userId"`
	ConfigID        string                       `gorm:"type:varchar(36);index" json:"configId"`
	ConfigName      string                       `gorm:"size:255" json:"configName"`
	Attempts        datatypes.JSONSlice[Attempt] `gorm:"type:json" json:"attempts"`
	Score           int                          `gorm:"not null;default:0" json:"score"`
	MaxScore        int                          `gorm:"not null;default:0" json:"maxScore"`
	PassingScore    int                          `gorm:"not null;default:0" json:"passingScore"`
	IsPassed        bool                         `gorm:"default:false" json:"isPassed"`
	Status          ResultStatus                 `gorm:"size:20;index;default:'completed'" json:"status"`
	StartedAt       *time.Time                   `json:"startedAt,omitempty"`
	DurationSeconds int                          `gorm:"default:0" json:"durationSeconds"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}

// Recompute 从完整的作答数组重新计算总分、满分、是否通过与状态，不做增量更新。
// 已完成的成绩不会回到待批改。
func (r *QuizResult) Recompute() {
	score, maxScore := 0, 0
	pending := false
	for i := range r.Attempts {
		a := &r.Attempts[i]
		score += a.Score
		maxScore += a.MaxScore
		if a.AwaitingHumanScore() {
			pending = true
		}
	}
	r.Score = score
	r.MaxScore = maxScore

	if r.Status != StatusCompleted {
		if pending {
			r.Status = StatusPendingGrading
		} else {
			r.Status = StatusCompleted
		}
	}
	// 待人工评分时不判定通过
	r.IsPassed = r.Status == StatusCompleted && score >= r.PassingScore
}

// FindAttempt 返回指定题目的作答下标
func (r *QuizResult) FindAttempt(questionID string) int {
	for i := range r.Attempts {
		if r.Attempts[i].QuestionID == questionID {
			return i
		}
	}
	return -1
}

// Clone 深拷贝，用于写前快照与审计对比
func (r *QuizResult) Clone() *QuizResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Attempts = make(datatypes.JSONSlice[Attempt], len(r.Attempts))
	copy(cp.Attempts, r.Attempts)
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	return &cp
}
