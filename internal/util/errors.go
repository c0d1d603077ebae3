package util

import "errors"

var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrExamSetNotFound = errors.New("exam set not found")
	ErrInvalidExamType = errors.New("exam_type must be mcq or subjective")
)
