package service

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// NormalizedQuestion is the canonical question record produced from one source
// row, regardless of which file format or column aliases it arrived with.
type NormalizedQuestion struct {
	ExternalID       string
	Order            int
	QuestionHeader   string
	QuestionText     string
	QuestionImageURL string
	OptionA          string
	OptionB          string
	OptionC          string
	OptionD          string
	// One of a/b/c/d, or empty when unresolved (MCQ) or not applicable
	// (subjective).
	CorrectOption string
	Explanation   string
	Marks         int
}

// IsValidMCQ reports whether the record can be imported as an objective MCQ.
func (q NormalizedQuestion) IsValidMCQ() bool {
	return q.QuestionText != "" && isOptionLetter(q.CorrectOption)
}

// IsValidExamRow reports whether the record can be imported into an exam set
// of the given type.
func (q NormalizedQuestion) IsValidExamRow(examType string) bool {
	if q.QuestionText == "" {
		return false
	}
	if examType == "mcq" && !isOptionLetter(q.CorrectOption) {
		return false
	}
	return true
}

func isOptionLetter(s string) bool {
	switch s {
	case "a", "b", "c", "d":
		return true
	}
	return false
}

func toInt(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// parseOptionsValue decodes an options field holding a JSON (or single-quoted
// pseudo-JSON) list or dict. Dict entries are read in answer-key order.
func parseOptionsValue(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	decode := func(text string) (any, bool) {
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return nil, false
		}
		return parsed, true
	}

	parsed, ok := decode(raw)
	if !ok {
		// Hand-written exports often use single quotes.
		parsed, ok = decode(strings.ReplaceAll(raw, "'", `"`))
	}
	if !ok {
		return nil
	}

	switch v := parsed.(type) {
	case []any:
		options := make([]string, 0, len(v))
		for _, item := range v {
			options = append(options, valueToText(item))
		}
		return options
	case map[string]any:
		var ordered []string
		for _, key := range []string{"a", "b", "c", "d", "1", "2", "3", "4"} {
			if item, exists := v[key]; exists {
				ordered = append(ordered, valueToText(item))
			}
		}
		if len(ordered) > 0 {
			return ordered
		}
		for _, item := range v {
			ordered = append(ordered, valueToText(item))
		}
		return ordered
	default:
		return nil
	}
}

func normalizeForCompare(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

var leadingLetterPattern = regexp.MustCompile(`^(?:option\s*)?([abcd])(?:[\)\].:\-\s]|$)`)

// Keys an answer may arrive under, in resolution order.
var correctOptionKeys = []string{
	"correct_option",
	"correctOption",
	"correct",
	"correct_answer",
	"correctAnswer",
	"answer",
	"answer_key",
	"answerIndex",
	"answer_index",
	"correctIndex",
	"correct_index",
	"ans",
}

var optionLetters = [4]string{"a", "b", "c", "d"}

// candidateToLetter maps one raw answer value to an option letter. Resolution
// order: direct letter, exact option-text match, 1-based then 0-based numeric
// index, a leading-letter pattern like "Option B)". A value that matches an
// option's text verbatim (for example answer "4" with options 4/5/6/7) is
// taken as that option rather than as a positional index.
func candidateToLetter(candidate string, optionMap map[string]string) string {
	value := strings.TrimSpace(candidate)
	if value == "" {
		return ""
	}

	// JSON-origin rows may stringify structured answers such as
	// {"option": "a"} or ["b"]; unwrap and retry.
	if strings.HasPrefix(value, "{") || strings.HasPrefix(value, "[") {
		if letter := structuredCandidateToLetter(value, optionMap); letter != "" {
			return letter
		}
	}

	lowered := strings.ToLower(value)
	if isOptionLetter(lowered) {
		return lowered
	}

	compareValue := normalizeForCompare(value)
	if compareValue != "" {
		for _, letter := range optionLetters {
			optionText := optionMap[letter]
			if optionText != "" && compareValue == normalizeForCompare(optionText) {
				return letter
			}
		}
	}

	if idx, err := strconv.Atoi(lowered); err == nil {
		if idx >= 1 && idx <= 4 {
			return optionLetters[idx-1]
		}
		if idx >= 0 && idx <= 3 {
			return optionLetters[idx]
		}
		return ""
	}

	if match := leadingLetterPattern.FindStringSubmatch(lowered); match != nil {
		return match[1]
	}

	return ""
}

func structuredCandidateToLetter(value string, optionMap map[string]string) string {
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		return ""
	}
	switch v := parsed.(type) {
	case map[string]any:
		for _, key := range []string{"option", "answer", "correct", "value"} {
			if inner, exists := v[key]; exists {
				return candidateToLetter(valueToText(inner), optionMap)
			}
		}
		return ""
	case []any:
		if len(v) == 0 {
			return ""
		}
		return candidateToLetter(valueToText(v[0]), optionMap)
	default:
		return candidateToLetter(valueToText(parsed), optionMap)
	}
}

// ResolveCorrectOption finds the answer letter for a row, trying each known
// answer key in order and falling through the candidate resolution chain.
// Returns "" when nothing resolves; the row is then invalid for MCQ import.
func ResolveCorrectOption(raw Row, optionA, optionB, optionC, optionD string) string {
	optionMap := map[string]string{
		"a": strings.TrimSpace(optionA),
		"b": strings.TrimSpace(optionB),
		"c": strings.TrimSpace(optionC),
		"d": strings.TrimSpace(optionD),
	}

	for _, key := range correctOptionKeys {
		if letter := candidateToLetter(raw[key], optionMap); letter != "" {
			return letter
		}
	}
	return ""
}

func resolveOptions(raw Row) (string, string, string, string) {
	options := parseOptionsValue(raw["options"])
	pick := func(idx int) string {
		if idx < len(options) {
			return strings.TrimSpace(options[idx])
		}
		return ""
	}
	optionA := firstNonEmpty(raw["option_a"], raw["a"], pick(0))
	optionB := firstNonEmpty(raw["option_b"], raw["b"], pick(1))
	optionC := firstNonEmpty(raw["option_c"], raw["c"], pick(2))
	optionD := firstNonEmpty(raw["option_d"], raw["d"], pick(3))
	return optionA, optionB, optionC, optionD
}

// NormalizeMCQRow maps an objective question-bank row onto the canonical
// schema, resolving column aliases and the answer encoding.
func NormalizeMCQRow(raw Row) NormalizedQuestion {
	optionA, optionB, optionC, optionD := resolveOptions(raw)

	return NormalizedQuestion{
		ExternalID:       strings.TrimSpace(raw["id"]),
		QuestionHeader:   firstNonEmpty(raw["question_header"], raw["header"], raw["questionHeader"]),
		QuestionText:     firstNonEmpty(raw["question_text"], raw["question"], raw["text"]),
		QuestionImageURL: firstNonEmpty(raw["question_image_url"], raw["image"], raw["questionImageUrl"]),
		OptionA:          optionA,
		OptionB:          optionB,
		OptionC:          optionC,
		OptionD:          optionD,
		CorrectOption:    ResolveCorrectOption(raw, optionA, optionB, optionC, optionD),
		Explanation:      strings.TrimSpace(raw["explanation"]),
		Marks:            1,
	}
}

// NormalizeExamRow maps an exam-set row onto the canonical schema. Options and
// the answer are only resolved for MCQ exams; subjective questions may
// assemble their body from a subquestions list instead.
func NormalizeExamRow(raw Row, examType string) NormalizedQuestion {
	q := NormalizedQuestion{
		ExternalID:       strings.TrimSpace(raw["id"]),
		Order:            toInt(firstNonEmpty(raw["order"], raw["no"], raw["index"]), 0),
		QuestionHeader:   firstNonEmpty(raw["question_header"], raw["header"], raw["questionHeader"]),
		QuestionText:     firstNonEmpty(raw["question_text"], raw["question"], raw["text"]),
		QuestionImageURL: firstNonEmpty(raw["question_image_url"], raw["image"], raw["questionImageUrl"]),
		Explanation:      strings.TrimSpace(raw["explanation"]),
		Marks:            toInt(raw["marks"], 1),
	}
	if q.Marks < 1 {
		q.Marks = 1
	}

	if q.QuestionText == "" {
		if lines := asInstructionList(firstNonEmpty(raw["subquestions"], raw["sub_questions"])); len(lines) > 0 {
			q.QuestionText = strings.Join(lines, "\n")
		}
	}

	if examType == "mcq" {
		q.OptionA, q.OptionB, q.OptionC, q.OptionD = resolveOptions(raw)
		q.CorrectOption = ResolveCorrectOption(raw, q.OptionA, q.OptionB, q.OptionC, q.OptionD)
	}

	return q
}
