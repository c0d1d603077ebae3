package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRowsCSV(t *testing.T) {
	raw := []byte("question,option_a,option_b,option_c,option_d,correct_option\n" +
		"What is 2+2?,4,5,6,7,a\n" +
		"Capital of Nepal?,Kathmandu,Pokhara,Lalitpur,Biratnagar,Kathmandu\n")

	rows, err := ParseRows("bank.csv", raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "What is 2+2?", rows[0]["question"])
	assert.Equal(t, "Kathmandu", rows[1]["option_a"])
	assert.Equal(t, "Kathmandu", rows[1]["correct_option"])
}

func TestParseRowsCSVWithBOM(t *testing.T) {
	raw := []byte("\xef\xbb\xbfquestion,correct_option\nQ1,a\n")
	rows, err := ParseRows("bank.csv", raw)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Q1", rows[0]["question"])
}

func TestParseRowsTSV(t *testing.T) {
	raw := []byte("question\toption_a\toption_b\nQ1\tyes\tno\n")
	rows, err := ParseRows("bank.tsv", raw)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "yes", rows[0]["option_a"])
}

func TestParseRowsCSVRaggedRecords(t *testing.T) {
	raw := []byte("question,option_a,option_b\nQ1,yes\nQ2,a,b,extra\n")
	rows, err := ParseRows("bank.csv", raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0]["option_b"])
	assert.Equal(t, "b", rows[1]["option_b"])
}

func TestParseRowsJSONArray(t *testing.T) {
	raw := []byte(`[
		{"question": "Q1", "option_a": "1", "option_b": "2", "correct_option": "a", "marks": 2},
		{"question": "Q2", "options": ["x", "y", "z", "w"], "answer": "x"}
	]`)
	rows, err := ParseRows("set.json", raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0]["marks"])
	assert.Equal(t, `["x","y","z","w"]`, rows[1]["options"])
}

func TestParseRowsJSONSections(t *testing.T) {
	raw := []byte(`{
		"examInfo": {"title": "Midterm", "time": "2 hours"},
		"instructions": ["Read carefully", "No calculators"],
		"sections": [
			{"title": "Section A", "questions": [{"question": "Q1"}, {"question": "Q2"}]},
			{"section": "B", "questions": [{"question": "Q3", "question_header": "Custom"}]}
		]
	}`)
	rows, err := ParseRows("set.json", raw)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Section A", rows[0]["question_header"])
	assert.Equal(t, "1", rows[0]["order"])
	assert.Equal(t, "2", rows[1]["order"])
	assert.Equal(t, "Custom", rows[2]["question_header"])
	assert.Equal(t, "3", rows[2]["order"])

	// Metadata rides on the first row until the extractor strips it.
	assert.NotEmpty(t, rows[0][MetaExamInfoKey])
	assert.NotEmpty(t, rows[0][MetaInstructionsKey])
}

func TestParseRowsJSONSectionHeaderKept(t *testing.T) {
	raw := []byte(`{"sections": [{"title": "A", "questions": [{"question": "Q", "question_header": "Own"}]}]}`)
	rows, err := ParseRows("set.json", raw)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Own", rows[0]["question_header"])
}

func TestParseRowsJSONListKeys(t *testing.T) {
	raw := []byte(`{"questions": [{"question": "Q1"}, {"question": "Q2"}]}`)
	rows, err := ParseRows("set.json", raw)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseRowsJSONSingleQuestionObject(t *testing.T) {
	raw := []byte(`{"question": "Only one", "option_a": "a", "option_b": "b"}`)
	rows, err := ParseRows("set.json", raw)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Only one", rows[0]["question"])
}

func TestParseRowsJSONDictOfQuestions(t *testing.T) {
	raw := []byte(`{
		"q1": {"question": "Q1", "correct_option": "a"},
		"q2": {"question": "Q2", "correct_option": "b"}
	}`)
	rows, err := ParseRows("set.json", raw)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseRowsJSONInvalid(t *testing.T) {
	_, err := ParseRows("set.json", []byte("{not json"))
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseRowsJSONScalarDocument(t *testing.T) {
	_, err := ParseRows("set.json", []byte(`"just a string"`))
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseRowsUnsupportedExtension(t *testing.T) {
	_, err := ParseRows("notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseRows("legacy.xls", []byte("binary"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("/bridge4er/Civil Engineering/Objective MCQs/Surveying/Ch1.CSV"))
	assert.True(t, IsSupportedFile("a/b/c.xlsx"))
	assert.False(t, IsSupportedFile("a/b/readme.md"))
	assert.False(t, IsSupportedFile("a/b/noext"))
}

func TestValueToTextComposite(t *testing.T) {
	assert.Equal(t, "true", valueToText(true))
	assert.Equal(t, "3.5", valueToText(3.5))
	assert.Equal(t, "42", valueToText(float64(42)))
	assert.Equal(t, "", valueToText(nil))
	assert.Equal(t, `{"a":"1"}`, valueToText(map[string]any{"a": "1"}))
}
