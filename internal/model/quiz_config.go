package model

import "gorm.io/datatypes"

// PartFilter 各字段为空表示不限制
type PartFilter struct {
	Subjects      []string       `json:"subjects,omitempty"`
	Difficulties  []string       `json:"difficulties,omitempty"`
	GradeLevels   []string       `json:"gradeLevels,omitempty"`
	QuestionTypes []QuestionType `json:"questionTypes,omitempty"`
	Categories    []string       `json:"categories,omitempty"`
}

// Part 试卷的一个部分，按声明顺序抽题
type Part struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Filter PartFilter `json:"filter"`
	Count  int        `json:"count"`
	Score  int        `json:"score"` // 每题分值
}

// swagger:model QuizConfig
type QuizConfig struct {
	UUIDBase
	Name           string                    `gorm:"size:255;not null" json:"name"`
	Parts          datatypes.JSONSlice[Part] `gorm:"type:json" json:"parts"`
	PassingScore   int                       `gorm:"default:0" json:"passingScore"`
	TotalQuestions int                       `gorm:"default:0" json:"totalQuestions"`
	IsPublished    bool                      `gorm:"default:false;index" json:"isPublished"`
}

func (QuizConfig) TableName() string {
	return "quiz_configs"
}

// RequestedTotal 各部分题量之和
func (c *QuizConfig) RequestedTotal() int {
	total := 0
	for _, p := range c.Parts {
		total += p.Count
	}
	return total
}

// Matches 题目是否满足筛选条件，与 QuestionRepository.GetCandidateIDs 的条件一致（不含禁用状态）
func (f PartFilter) Matches(q *Question) bool {
	return matchAny(f.Subjects, q.Subject) &&
		matchAny(f.Difficulties, q.Difficulty) &&
		matchAny(f.GradeLevels, q.GradeLevel) &&
		matchAny(f.QuestionTypes, q.Type) &&
		matchAny(f.Categories, q.Category)
}

func matchAny[T comparable](allowed []T, v T) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
