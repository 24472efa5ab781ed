package model

import "gorm.io/datatypes"

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiSelect  QuestionType = "multi_select"
	TrueFalse    QuestionType = "true_false"
	FillBlank    QuestionType = "fill_blank"
	ShortAnswer  QuestionType = "short_answer"
)

func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultiSelect, TrueFalse, FillBlank, ShortAnswer:
		return true
	}
	return false
}

// Question 题库中的题目，CorrectAnswer 按题型可能是原始字符串、JSON 数组或分隔符拼接的字符串
// swagger:model Question
type Question struct {
	UUIDBase
	Type          QuestionType   `gorm:"size:30;index;not null" json:"type"`
	Subject       string         `gorm:"size:100;index" json:"subject"`
	Difficulty    string         `gorm:"size:30;index" json:"difficulty"`
	GradeLevel    string         `gorm:"size:30;index" json:"gradeLevel"`
	Category      string         `gorm:"size:100;index" json:"category"`
	Text          string         `gorm:"type:text;not null" json:"text"`
	Options       datatypes.JSON `gorm:"type:json" json:"options,omitempty"`
	Images        datatypes.JSON `gorm:"type:json" json:"images,omitempty"`
	CorrectAnswer string         `gorm:"type:text" json:"correctAnswer"`
	Explanation   string         `gorm:"type:text" json:"explanation"`
	Score         int            `gorm:"default:0" json:"score"`
	IsDisabled    bool           `gorm:"default:false;index" json:"isDisabled"`
	ManualGrading bool           `gorm:"default:false" json:"manualGrading"` // 仅简答题有效
}

func (Question) TableName() string {
	return "questions"
}

// RequiresManualGrading 只有简答题的人工评分标记生效
func (q *Question) RequiresManualGrading() bool {
	return q.Type == ShortAnswer && q.ManualGrading
}

// ClientQuestion 下发给答题端的题目，CorrectAnswer 永远为 nil
type ClientQuestion struct {
	ID            string         `json:"id"`
	Type          QuestionType   `json:"type"`
	Text          string         `json:"text"`
	Options       datatypes.JSON `json:"options,omitempty"`
	Images        datatypes.JSON `json:"images,omitempty"`
	CorrectAnswer *string        `json:"correctAnswer"`
	Score         int            `json:"score"`
	BlankCount    int            `json:"blankCount,omitempty"`
	ManualGrading bool           `json:"manualGrading,omitempty"`
	PartID        string         `json:"partId"`
	PartName      string         `json:"partName"`
	Order         int            `json:"order"`
}
