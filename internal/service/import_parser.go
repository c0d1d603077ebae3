package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one logical record from a source file. Keys come straight from the
// file's own headers; column aliasing is resolved later by the normalizer, so
// unrecognized columns are kept verbatim.
type Row map[string]string

// Reserved keys the parser attaches to the first row when a JSON file carries
// exam-level metadata out-of-band. The metadata extractor strips them again.
const (
	MetaExamInfoKey     = "__exam_info__"
	MetaInstructionsKey = "__instructions__"
)

var SupportedImportExtensions = []string{".csv", ".tsv", ".json", ".xlsx", ".xls"}

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrParse             = errors.New("parse error")
)

func IsSupportedFile(filePath string) bool {
	ext := strings.ToLower(path.Ext(filePath))
	for _, supported := range SupportedImportExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// ParseRows turns raw file bytes into string-keyed rows, dispatching on the
// file extension.
func ParseRows(filename string, raw []byte) ([]Row, error) {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".csv":
		return parseDelimitedRows(raw, ',')
	case ".tsv":
		return parseDelimitedRows(raw, '\t')
	case ".json":
		return parseJSONRows(raw)
	case ".xlsx":
		return parseXLSXRows(raw)
	case ".xls":
		return nil, fmt.Errorf("%w: legacy .xls workbooks are not supported, convert to .xlsx", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedImportExtensions, ", "))
	}
}

func stripBOM(raw []byte) []byte {
	return bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
}

func rowsFromTable(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := Row{}
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			row[header] = value
		}
		rows = append(rows, row)
	}
	return rows
}

func parseDelimitedRows(raw []byte, delimiter rune) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(stripBOM(raw)))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return rowsFromTable(records), nil
}

func parseXLSXRows(raw []byte) ([]Row, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	records, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return rowsFromTable(records), nil
}

// valueToText renders a decoded JSON value the way the normalizer expects:
// scalars as trimmed text, composites re-encoded as compact JSON so the
// options parser can decode them again.
func valueToText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func normalizeRawRow(item map[string]any) Row {
	row := Row{}
	for key, value := range item {
		normKey := strings.TrimSpace(key)
		if normKey == "" {
			continue
		}
		row[normKey] = valueToText(value)
	}
	return row
}

// Fallback keys a top-level JSON object may store its question list under.
var jsonRowListKeys = []string{
	"questions",
	"items",
	"data",
	"rows",
	"records",
	"mcqs",
	"objective_questions",
	"exam_questions",
	"subjective_questions",
}

// Tokens whose presence marks a top-level object as a single question row.
var questionMarkerKeys = map[string]bool{
	"question":       true,
	"question_text":  true,
	"questionheader": true,
	"options":        true,
	"option_a":       true,
	"option_b":       true,
	"option_c":       true,
	"option_d":       true,
	"marks":          true,
}

func asInstructionList(value any) []string {
	appendText := func(list []string, item any) []string {
		if text := valueToText(item); text != "" {
			list = append(list, text)
		}
		return list
	}

	switch v := value.(type) {
	case []any:
		var list []string
		for _, item := range v {
			list = appendText(list, item)
		}
		return list
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" {
			return nil
		}
		var parsed []any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			var list []string
			for _, item := range parsed {
				list = appendText(list, item)
			}
			return list
		}
		var list []string
		for _, line := range strings.Split(raw, "\n") {
			if s := strings.TrimSpace(line); s != "" {
				list = append(list, s)
			}
		}
		return list
	default:
		return nil
	}
}

func sectionRows(sections []any) []Row {
	var rows []Row
	orderCounter := 1
	for _, rawSection := range sections {
		section, ok := rawSection.(map[string]any)
		if !ok {
			continue
		}
		sectionTitle := valueToText(section["title"])
		sectionLabel := valueToText(section["section"])
		questions, ok := section["questions"].([]any)
		if !ok {
			continue
		}
		for _, rawItem := range questions {
			item, ok := rawItem.(map[string]any)
			if !ok {
				continue
			}
			row := normalizeRawRow(item)
			if row["question_header"] == "" {
				if sectionTitle != "" {
					row["question_header"] = sectionTitle
				} else if sectionLabel != "" {
					row["question_header"] = "Section " + sectionLabel
				}
			}
			if row["order"] == "" || row["order"] == "0" {
				row["order"] = strconv.Itoa(orderCounter)
			}
			rows = append(rows, row)
			orderCounter++
		}
	}
	return rows
}

func parseJSONRows(raw []byte) ([]Row, error) {
	var parsed any
	if err := json.Unmarshal(stripBOM(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON file: %v", ErrParse, err)
	}

	var rawRows []map[string]any
	var examInfo map[string]any
	var instructions []string

	switch doc := parsed.(type) {
	case []any:
		for _, item := range doc {
			if m, ok := item.(map[string]any); ok {
				rawRows = append(rawRows, m)
			}
		}
	case map[string]any:
		if info, ok := doc["examInfo"].(map[string]any); ok {
			examInfo = info
		}
		instructions = asInstructionList(doc["instructions"])

		var rows []Row
		if sections, ok := doc["sections"].([]any); ok {
			rows = sectionRows(sections)
		}
		if len(rows) > 0 {
			return appendEmbeddedMetadata(rows, examInfo, instructions), nil
		}

		for _, key := range jsonRowListKeys {
			if list, ok := doc[key].([]any); ok {
				for _, item := range list {
					if m, ok := item.(map[string]any); ok {
						rawRows = append(rawRows, m)
					}
				}
				break
			}
		}

		if len(rawRows) == 0 {
			marked := false
			for key := range doc {
				if questionMarkerKeys[strings.ToLower(strings.TrimSpace(key))] {
					marked = true
					break
				}
			}
			if marked {
				rawRows = append(rawRows, doc)
			} else {
				// A map of id -> question objects also counts when most
				// values are objects.
				var dictValues []map[string]any
				for _, value := range doc {
					if m, ok := value.(map[string]any); ok {
						dictValues = append(dictValues, m)
					}
				}
				threshold := len(doc) / 2
				if threshold < 1 {
					threshold = 1
				}
				if len(dictValues) >= threshold && len(dictValues) > 0 {
					rawRows = dictValues
				}
			}
		}
	default:
		return nil, fmt.Errorf("%w: JSON file must contain an array or object with question rows", ErrParse)
	}

	rows := make([]Row, 0, len(rawRows))
	for _, item := range rawRows {
		rows = append(rows, normalizeRawRow(item))
	}
	return appendEmbeddedMetadata(rows, examInfo, instructions), nil
}

// appendEmbeddedMetadata stashes exam metadata on the first row under the
// reserved keys so it survives the row pipeline.
func appendEmbeddedMetadata(rows []Row, examInfo map[string]any, instructions []string) []Row {
	if len(rows) == 0 {
		return rows
	}
	if len(examInfo) > 0 {
		if encoded, err := json.Marshal(normalizeRawRow(examInfo)); err == nil {
			rows[0][MetaExamInfoKey] = string(encoded)
		}
	}
	if len(instructions) > 0 {
		if encoded, err := json.Marshal(instructions); err == nil {
			rows[0][MetaInstructionsKey] = string(encoded)
		}
	}
	return rows
}
