package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"quiz_engine/internal/model"
)

// BlankDelimiter 填空题多空拼接时使用的分隔符
const BlankDelimiter = "|||"

// Answer 答案的统一表示，按题型确定编码：SingleAnswer 或 MultiAnswer
type Answer interface {
	// Encode 序列化为存储/传输用的字符串
	Encode() string
	Values() []string
	isAnswer()
}

type SingleAnswer string

func (a SingleAnswer) Encode() string   { return string(a) }
func (a SingleAnswer) Values() []string { return []string{string(a)} }
func (SingleAnswer) isAnswer()          {}

type MultiAnswer []string

func (a MultiAnswer) Encode() string {
	if a == nil {
		return "[]"
	}
	b, _ := json.Marshal([]string(a))
	return string(b)
}

func (a MultiAnswer) Values() []string { return a }
func (MultiAnswer) isAnswer()          {}

// DecodeAnswer 解析学生答案或标准答案。
// 多选题只接受 JSON 字符串数组；填空题依次尝试 JSON 数组、分隔符、单个字符串，不会失败。
func DecodeAnswer(qt model.QuestionType, raw string) (Answer, error) {
	switch qt {
	case model.SingleChoice, model.TrueFalse, model.ShortAnswer:
		return SingleAnswer(raw), nil
	case model.MultiSelect:
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, fmt.Errorf("decode multi-select answer: %w", err)
		}
		return MultiAnswer(values), nil
	case model.FillBlank:
		return MultiAnswer(splitBlanks(raw)), nil
	default:
		return nil, fmt.Errorf("unsupported question type %q", qt)
	}
}

func splitBlanks(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &elems); err == nil {
			blanks := make([]string, len(elems))
			for i, e := range elems {
				var s string
				if json.Unmarshal(e, &s) == nil {
					blanks[i] = s
				} else {
					// 数字等非字符串元素按原文比较
					blanks[i] = string(e)
				}
			}
			return blanks
		}
	}
	if strings.Contains(raw, BlankDelimiter) {
		return strings.Split(raw, BlankDelimiter)
	}
	return []string{raw}
}

// BlankCount 填空题的空数，至少为 1
func BlankCount(correctAnswer string) int {
	n := len(splitBlanks(correctAnswer))
	if n < 1 {
		return 1
	}
	return n
}
