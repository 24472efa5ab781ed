package service

import (
	"testing"

	"quiz_engine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnswerByType(t *testing.T) {
	a, err := DecodeAnswer(model.SingleChoice, `["A"]`)
	require.NoError(t, err)
	assert.Equal(t, SingleAnswer(`["A"]`), a)

	a, err = DecodeAnswer(model.MultiSelect, `["A","C"]`)
	require.NoError(t, err)
	assert.Equal(t, MultiAnswer{"A", "C"}, a)

	_, err = DecodeAnswer(model.MultiSelect, `A,C`)
	assert.Error(t, err)

	_, err = DecodeAnswer(model.QuestionType("essay"), "x")
	assert.Error(t, err)
}

func TestDecodeFillBlankEncodings(t *testing.T) {
	cases := map[string][]string{
		`["北京","上海"]`: {"北京", "上海"},
		"北京|||上海":      {"北京", "上海"},
		"北京":           {"北京"},
		`[3, "x"]`:     {"3", "x"},
	}
	for raw, want := range cases {
		a, err := DecodeAnswer(model.FillBlank, raw)
		require.NoError(t, err)
		assert.Equal(t, want, a.Values(), raw)
	}
}

func TestAnswerEncode(t *testing.T) {
	assert.Equal(t, "B", SingleAnswer("B").Encode())
	assert.Equal(t, `["A","B"]`, MultiAnswer{"A", "B"}.Encode())
	assert.Equal(t, "[]", MultiAnswer(nil).Encode())

	// 存储的 JSON 数组编码可以原样还原
	raw := `["x","y"]`
	a, err := DecodeAnswer(model.MultiSelect, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, a.Encode())
}
