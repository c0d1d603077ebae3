package service

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ExamInfo is the exam-level metadata block extracted from a source file,
// merged over the defaults. All values stay textual here; parsing into typed
// exam-set attributes happens in BuildExamSetUpdate.
type ExamInfo map[string]string

// DefaultExamInfo is applied for every field a source file omits.
var DefaultExamInfo = ExamInfo{
	"title":      "bridge4er test files",
	"subtitle":   "इन्जिनियरिंग सेवा, सिभिल समूह",
	"date":       " ",
	"time":       "1 Hour",
	"paper":      " ",
	"subject":    "Civil Engineering",
	"full_marks": "100",
	"ispaid":     "True",
	"price":      "NPR. 50",
}

var DefaultInstructions = []string{
	"सबै प्रश्न अनिवार्य छन्",
}

// examInfoKeyMap maps normalized header tokens onto canonical metadata fields.
var examInfoKeyMap = map[string]string{
	"title":      "title",
	"subtitle":   "subtitle",
	"date":       "date",
	"time":       "time",
	"paper":      "paper",
	"subject":    "subject",
	"fullmarks":  "full_marks",
	"full_mark":  "full_marks",
	"full_marks": "full_marks",
	"fullmark":   "full_marks",
	"ispaid":     "ispaid",
	"is_paid":    "ispaid",
	"price":      "price",
}

var questionHeaderTokens = map[string]bool{
	"id":                 true,
	"order":              true,
	"question":           true,
	"question_text":      true,
	"question_header":    true,
	"question_image_url": true,
	"option_a":           true,
	"option_b":           true,
	"option_c":           true,
	"option_d":           true,
	"correct_option":     true,
	"correct":            true,
	"explanation":        true,
	"marks":              true,
}

var questionColumnMap = map[string]string{
	"id":                 "id",
	"order":              "order",
	"question":           "question",
	"question_text":      "question",
	"question_header":    "question_header",
	"question_image_url": "question_image_url",
	"questionimageurl":   "question_image_url",
	"question_image":     "question_image_url",
	"image":              "question_image_url",
	"option_a":           "option_a",
	"optiona":            "option_a",
	"option_b":           "option_b",
	"optionb":            "option_b",
	"option_c":           "option_c",
	"optionc":            "option_c",
	"option_d":           "option_d",
	"optiond":            "option_d",
	"correct_option":     "correct_option",
	"correctoption":      "correct_option",
	"correct_answer":     "correct_option",
	"correctanswer":      "correct_option",
	"correct":            "correct_option",
	"answer":             "correct_option",
	"explanation":        "explanation",
	"marks":              "marks",
}

var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeKey lowercases and collapses punctuation so "Full Marks:" and
// "full_marks" match the same field.
func normalizeKey(value string) string {
	text := strings.ToLower(strings.TrimSpace(value))
	if text == "" {
		return ""
	}
	return strings.Trim(nonAlnumPattern.ReplaceAllString(text, "_"), "_")
}

func mergeExamInfo(overrides ExamInfo) ExamInfo {
	merged := make(ExamInfo, len(DefaultExamInfo))
	for key, value := range DefaultExamInfo {
		merged[key] = value
	}
	for rawKey, rawValue := range overrides {
		canonical, known := examInfoKeyMap[normalizeKey(rawKey)]
		if !known {
			continue
		}
		if value := strings.TrimSpace(rawValue); value != "" {
			merged[canonical] = value
		}
	}
	return merged
}

// parseEmbeddedMetadata pops the reserved sidecar keys the parser attached to
// the first row.
func parseEmbeddedMetadata(rows []Row) (ExamInfo, []string) {
	if len(rows) == 0 {
		return nil, nil
	}
	first := rows[0]
	examInfoRaw := first[MetaExamInfoKey]
	instructionsRaw := first[MetaInstructionsKey]
	delete(first, MetaExamInfoKey)
	delete(first, MetaInstructionsKey)

	var examInfo ExamInfo
	if examInfoRaw != "" {
		var parsed map[string]string
		if err := json.Unmarshal([]byte(examInfoRaw), &parsed); err == nil {
			examInfo = parsed
		}
	}
	return examInfo, asInstructionList(instructionsRaw)
}

func looksLikeQuestionHeader(tokens []string) bool {
	hits := 0
	for _, token := range tokens {
		if questionHeaderTokens[token] {
			hits++
		}
	}
	return hits >= 3
}

// extractRowStructuredTable handles "key-value-style" sheets whose column
// headers are metadata field names: the first row holds metadata values, the
// next (or the first, when it already looks like a question header) defines
// the real question columns, and everything after is data. Returns nil when
// the row set is not shaped that way.
func extractRowStructuredTable(rows []Row) ([]Row, ExamInfo, bool) {
	if len(rows) == 0 {
		return nil, nil, false
	}

	keyOrder := make([]string, 0, len(rows[0]))
	for key := range rows[0] {
		keyOrder = append(keyOrder, key)
	}
	// Map iteration order is random; a stable order keeps column pairing
	// deterministic across the metadata and header rows.
	sort.Strings(keyOrder)

	normalizedKeys := make([]string, len(keyOrder))
	examKeyHits := 0
	for i, key := range keyOrder {
		normalizedKeys[i] = normalizeKey(key)
		if _, known := examInfoKeyMap[normalizedKeys[i]]; known {
			examKeyHits++
		}
	}
	if examKeyHits < 5 {
		return nil, nil, false
	}

	rowValues := func(row Row) []string {
		values := make([]string, len(keyOrder))
		for i, key := range keyOrder {
			values[i] = strings.TrimSpace(row[key])
		}
		return values
	}

	firstValues := rowValues(rows[0])
	firstTokens := make([]string, len(firstValues))
	for i, value := range firstValues {
		firstTokens[i] = normalizeKey(value)
	}

	extractedInfo := ExamInfo{}
	var questionColumns []string
	dataStart := 1

	if looksLikeQuestionHeader(firstTokens) {
		questionColumns = firstTokens
	} else {
		for i, normKey := range normalizedKeys {
			canonical, known := examInfoKeyMap[normKey]
			if !known {
				continue
			}
			if value := firstValues[i]; value != "" {
				extractedInfo[canonical] = value
			}
		}

		if len(rows) < 2 {
			return nil, extractedInfo, true
		}

		secondValues := rowValues(rows[1])
		secondTokens := make([]string, len(secondValues))
		for i, value := range secondValues {
			secondTokens[i] = normalizeKey(value)
		}
		if !looksLikeQuestionHeader(secondTokens) {
			return nil, nil, false
		}
		questionColumns = secondTokens
		dataStart = 2
	}

	mappedColumns := make([]string, len(questionColumns))
	for i, token := range questionColumns {
		if canonical, known := questionColumnMap[token]; known {
			mappedColumns[i] = canonical
		} else {
			mappedColumns[i] = token
		}
	}

	var questionRows []Row
	for _, sourceRow := range rows[dataStart:] {
		values := rowValues(sourceRow)
		transformed := Row{}
		hasValue := false
		for i, column := range mappedColumns {
			if column == "" {
				continue
			}
			value := ""
			if i < len(values) {
				value = values[i]
			}
			transformed[column] = value
			if value != "" {
				hasValue = true
			}
		}
		if hasValue {
			questionRows = append(questionRows, transformed)
		}
	}

	return questionRows, extractedInfo, true
}

// ExtractExamRowsAndMetadata splits a parsed file into question rows, the
// merged exam metadata, and the instruction list. Embedded sidecar metadata is
// authoritative over values found in a structured header block.
func ExtractExamRowsAndMetadata(rows []Row) ([]Row, ExamInfo, []string) {
	cleaned := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		copied := Row{}
		for key, value := range row {
			copied[key] = strings.TrimSpace(value)
		}
		cleaned = append(cleaned, copied)
	}

	embeddedInfo, embeddedInstructions := parseEmbeddedMetadata(cleaned)

	extractedInfo := ExamInfo{}
	if questionRows, info, ok := extractRowStructuredTable(cleaned); ok {
		cleaned = questionRows
		extractedInfo = info
	}

	overrides := ExamInfo{}
	for key, value := range extractedInfo {
		overrides[key] = value
	}
	for key, value := range embeddedInfo {
		overrides[key] = value
	}

	instructions := embeddedInstructions
	if len(instructions) == 0 {
		instructions = append([]string(nil), DefaultInstructions...)
	}
	return cleaned, mergeExamInfo(overrides), instructions
}

func parseBoolText(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return def
	case "1", "true", "yes", "y", "paid":
		return true
	case "0", "false", "no", "n", "free":
		return false
	default:
		return def
	}
}

var (
	numberPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	hourAbbrevPattern = regexp.MustCompile(`\bh\b`)
	minAbbrevPattern  = regexp.MustCompile(`\bm\b`)
	secAbbrevPattern  = regexp.MustCompile(`\bs\b`)
	nonPricePattern   = regexp.MustCompile(`[^0-9.]`)
)

// ParseDurationSeconds interprets the many ways exam sheets write durations:
// H:MM:SS and MM:SS colon forms, "<n> hours/minutes/seconds" with common
// abbreviations, and bare numbers (treated as minutes). Result never drops
// below one minute; empty or unparsable input yields the caller's default.
func ParseDurationSeconds(value string, defaultSeconds int) int {
	text := strings.ToLower(strings.TrimSpace(value))
	if text == "" {
		return defaultSeconds
	}

	if strings.Contains(text, ":") {
		parts := strings.Split(text, ":")
		numbers := make([]int, 0, len(parts))
		allDigits := true
		for _, part := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				allDigits = false
				break
			}
			numbers = append(numbers, n)
		}
		if allDigits {
			if len(numbers) == 2 {
				return clampSeconds(numbers[0]*60 + numbers[1])
			}
			if len(numbers) == 3 {
				return clampSeconds(numbers[0]*3600 + numbers[1]*60 + numbers[2])
			}
		}
	}

	match := numberPattern.FindString(text)
	if match == "" {
		return defaultSeconds
	}
	number, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return defaultSeconds
	}

	switch {
	case strings.Contains(text, "hour") || strings.Contains(text, "hr") || hourAbbrevPattern.MatchString(text):
		return clampSeconds(int(number*3600 + 0.5))
	case strings.Contains(text, "minute") || strings.Contains(text, "min") || minAbbrevPattern.MatchString(text):
		return clampSeconds(int(number*60 + 0.5))
	case strings.Contains(text, "second") || strings.Contains(text, "sec") || secAbbrevPattern.MatchString(text):
		return clampSeconds(int(number + 0.5))
	default:
		// Plain numeric values are treated as minutes.
		return clampSeconds(int(number*60 + 0.5))
	}
}

func clampSeconds(seconds int) int {
	if seconds < 60 {
		return 60
	}
	return seconds
}

// ParsePrice strips currency markers ("NPR. 50", "Rs 100/-") before decimal
// conversion; unparsable input yields the caller's default.
func ParsePrice(value string, def decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return def
	}
	cleaned := nonPricePattern.ReplaceAllString(raw, "")
	if cleaned == "" {
		return def
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return def
	}
	return price
}

// ExamSetAttrs is the attribute payload applied to an exam set on each sync.
type ExamSetAttrs struct {
	Name            string
	Description     string
	Instructions    string
	IsFree          bool
	Fee             decimal.Decimal
	DurationSeconds int
	GraceSeconds    int
	NegativeMarking decimal.Decimal
	IsActive        bool
}

// BuildExamSetUpdate turns extracted metadata into typed exam-set attributes,
// applying defaults and the free/paid fee rule.
func BuildExamSetUpdate(examType, fallbackName string, info ExamInfo, instructions []string) ExamSetAttrs {
	merged := mergeExamInfo(info)

	title := firstNonEmpty(merged["title"], fallbackName, DefaultExamInfo["title"])
	subtitle := strings.TrimSpace(merged["subtitle"])
	subject := strings.TrimSpace(merged["subject"])
	paper := strings.TrimSpace(merged["paper"])
	date := strings.TrimSpace(merged["date"])
	fullMarks := strings.TrimSpace(merged["full_marks"])

	isPaid := parseBoolText(merged["ispaid"], true)
	fee := ParsePrice(merged["price"], decimal.NewFromInt(50))
	if !isPaid {
		fee = decimal.Zero
	}

	descriptionLines := []string{subtitle}
	if subject != "" {
		descriptionLines = append(descriptionLines, "Subject: "+subject)
	}
	if paper != "" {
		descriptionLines = append(descriptionLines, "Paper: "+paper)
	}
	if date != "" {
		descriptionLines = append(descriptionLines, "Date: "+date)
	}
	if fullMarks != "" {
		descriptionLines = append(descriptionLines, "Full Marks: "+fullMarks)
	}
	var nonEmptyLines []string
	for _, line := range descriptionLines {
		if line != "" {
			nonEmptyLines = append(nonEmptyLines, line)
		}
	}
	description := strings.TrimSpace(strings.Join(nonEmptyLines, "\n"))
	if description == "" {
		description = "Imported from file"
	}

	var normalizedInstructions []string
	for _, line := range instructions {
		if s := strings.TrimSpace(line); s != "" {
			normalizedInstructions = append(normalizedInstructions, s)
		}
	}
	if len(normalizedInstructions) == 0 {
		normalizedInstructions = append([]string(nil), DefaultInstructions...)
	}

	graceSeconds := 60
	negativeMarking := decimal.RequireFromString("0.25")
	if examType == "subjective" {
		graceSeconds = 120
		negativeMarking = decimal.Zero
	}

	return ExamSetAttrs{
		Name:            title,
		Description:     description,
		Instructions:    strings.Join(normalizedInstructions, "\n"),
		IsFree:          !isPaid,
		Fee:             fee,
		DurationSeconds: ParseDurationSeconds(merged["time"], 3600),
		GraceSeconds:    graceSeconds,
		NegativeMarking: negativeMarking,
		IsActive:        true,
	}
}
