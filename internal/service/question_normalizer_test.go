package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCorrectOptionNumericTextAndPattern(t *testing.T) {
	options := []string{"4", "5", "6", "7"}
	cases := []struct {
		answer string
		want   string
	}{
		{"1", "a"},          // 1-based index
		{"0", "a"},          // 0-based index
		{"a", "a"},          // direct letter
		{"B", "b"},          // direct letter, case-insensitive
		{"Option A) ", "a"}, // leading-letter pattern
		{"4", "a"},          // verbatim option text beats positional index
		{"5", "b"},
		{"z", ""}, // no match
		{"", ""},
	}
	for _, tc := range cases {
		raw := Row{"correct_option": tc.answer}
		got := ResolveCorrectOption(raw, options[0], options[1], options[2], options[3])
		assert.Equal(t, tc.want, got, "answer %q", tc.answer)
	}
}

func TestResolveCorrectOptionTextMatch(t *testing.T) {
	raw := Row{"answer": "  KATHMANDU  "}
	got := ResolveCorrectOption(raw, "Kathmandu", "Pokhara", "Lalitpur", "Biratnagar")
	assert.Equal(t, "a", got)
}

func TestResolveCorrectOptionKeyOrder(t *testing.T) {
	// correct_option wins over answer when both are present.
	raw := Row{"correct_option": "b", "answer": "c"}
	assert.Equal(t, "b", ResolveCorrectOption(raw, "w", "x", "y", "z"))

	raw = Row{"answer_index": "2"}
	assert.Equal(t, "b", ResolveCorrectOption(raw, "w", "x", "y", "z"))
}

func TestResolveCorrectOptionStructured(t *testing.T) {
	raw := Row{"correct_option": `{"option": "c"}`}
	assert.Equal(t, "c", ResolveCorrectOption(raw, "w", "x", "y", "z"))

	raw = Row{"correct_option": `["d"]`}
	assert.Equal(t, "d", ResolveCorrectOption(raw, "w", "x", "y", "z"))
}

func TestParseOptionsValue(t *testing.T) {
	assert.Equal(t, []string{"p", "q", "r", "s"}, parseOptionsValue(`["p","q","r","s"]`))
	assert.Equal(t, []string{"p", "q"}, parseOptionsValue(`['p','q']`))
	assert.Equal(t, []string{"p", "q"}, parseOptionsValue(`{"a":"p","b":"q"}`))
	assert.Equal(t, []string{"p", "q"}, parseOptionsValue(`{"1":"p","2":"q"}`))
	assert.Nil(t, parseOptionsValue(""))
	assert.Nil(t, parseOptionsValue("not a list"))
}

func TestNormalizeMCQRowAliases(t *testing.T) {
	raw := Row{
		"id":             "17",
		"text":           "What is the unit of force?",
		"a":              "Newton",
		"b":              "Joule",
		"c":              "Watt",
		"d":              "Pascal",
		"correct_answer": "Newton",
		"explanation":    "F = ma",
	}
	q := NormalizeMCQRow(raw)
	assert.Equal(t, "17", q.ExternalID)
	assert.Equal(t, "What is the unit of force?", q.QuestionText)
	assert.Equal(t, "Newton", q.OptionA)
	assert.Equal(t, "a", q.CorrectOption)
	assert.True(t, q.IsValidMCQ())
}

func TestNormalizeMCQRowOptionsList(t *testing.T) {
	raw := Row{
		"question": "Pick one",
		"options":  `["red", "green", "blue", "black"]`,
		"answer":   "2",
	}
	q := NormalizeMCQRow(raw)
	assert.Equal(t, "green", q.OptionB)
	assert.Equal(t, "b", q.CorrectOption)
}

func TestNormalizeMCQRowInvalid(t *testing.T) {
	q := NormalizeMCQRow(Row{"question": "No answer here", "option_a": "x"})
	assert.False(t, q.IsValidMCQ())

	q = NormalizeMCQRow(Row{"correct_option": "a"})
	assert.False(t, q.IsValidMCQ())
}

func TestNormalizeExamRowSubjective(t *testing.T) {
	raw := Row{
		"order":        "3",
		"subquestions": `["Define stress.", "Define strain."]`,
		"marks":        "8",
	}
	q := NormalizeExamRow(raw, "subjective")
	assert.Equal(t, 3, q.Order)
	assert.Equal(t, "Define stress.\nDefine strain.", q.QuestionText)
	assert.Equal(t, 8, q.Marks)
	assert.Empty(t, q.CorrectOption)
	assert.True(t, q.IsValidExamRow("subjective"))
}

func TestNormalizeExamRowMCQ(t *testing.T) {
	raw := Row{
		"question":       "Q",
		"option_a":       "1",
		"option_b":       "2",
		"option_c":       "3",
		"option_d":       "4",
		"correct_option": "b",
	}
	q := NormalizeExamRow(raw, "mcq")
	assert.Equal(t, "b", q.CorrectOption)
	assert.Equal(t, 1, q.Marks)
	assert.True(t, q.IsValidExamRow("mcq"))

	raw["correct_option"] = "nonsense"
	q = NormalizeExamRow(raw, "mcq")
	assert.False(t, q.IsValidExamRow("mcq"))
}

func TestNormalizeExamRowMarksFloor(t *testing.T) {
	q := NormalizeExamRow(Row{"question": "Q", "marks": "0"}, "subjective")
	assert.Equal(t, 1, q.Marks)

	q = NormalizeExamRow(Row{"question": "Q", "marks": "-2"}, "subjective")
	assert.Equal(t, 1, q.Marks)
}
