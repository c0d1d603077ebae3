package service

import (
	"path"
	"strings"
)

// Remote folder-tree conventions. Two layouts are recognized under the tenant
// root:
//
//	<root>/<branch>/Objective MCQs/[Subjects/]<Institution...>/<Subject>/<ChapterFile>
//	<root>/<branch>/Take Exam/{Multiple Choice Exam|Subjective Exam}/<Institution>/<Topic...>/<file>
//
// Institution segments are folded into the subject's compound key so that
// (name, branch) stays unique across institutions.
const (
	GeneralInstitution      = "General"
	SubjectKeySeparator     = " :: "
	InstitutionKeySeparator = " > "

	objectiveFolder     = "Objective MCQs"
	takeExamFolder      = "Take Exam"
	mcqExamFolder       = "Multiple Choice Exam"
	subjectiveFolder    = "Subjective Exam"
	subjectsGroupFolder = "Subjects"
)

func splitPath(p string) []string {
	var parts []string
	for _, segment := range strings.Split(p, "/") {
		if s := strings.TrimSpace(segment); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// relativePartsAfterAnchor locates anchorParts (case-insensitive) inside the
// path and returns the segments after it, original casing preserved.
func relativePartsAfterAnchor(p string, anchorParts []string) []string {
	parts := splitPath(p)
	if len(parts) == 0 || len(anchorParts) == 0 {
		return nil
	}
	lowered := make([]string, len(parts))
	for i, item := range parts {
		lowered[i] = strings.ToLower(item)
	}
	anchor := make([]string, len(anchorParts))
	for i, item := range anchorParts {
		anchor[i] = strings.ToLower(item)
	}
	span := len(anchor)
	for index := 0; index+span <= len(lowered); index++ {
		matched := true
		for offset := range anchor {
			if lowered[index+offset] != anchor[offset] {
				matched = false
				break
			}
		}
		if matched {
			return parts[index+span:]
		}
	}
	return nil
}

func fileStem(p string) string {
	base := path.Base(strings.TrimSpace(p))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
}

// BuildSubjectKey encodes the institution prefix into the stored subject name.
func BuildSubjectKey(institutionKey, subjectName string) string {
	cleanSubject := strings.TrimSpace(subjectName)
	cleanInstitution := strings.TrimSpace(institutionKey)
	if cleanInstitution == "" || cleanInstitution == GeneralInstitution {
		return cleanSubject
	}
	return cleanInstitution + SubjectKeySeparator + cleanSubject
}

// SubjectKeyInfo is the display decomposition of a stored subject name.
type SubjectKeyInfo struct {
	SubjectKey         string
	SubjectName        string
	InstitutionKey     string
	InstitutionDisplay string
	InstitutionParts   []string
	InstitutionPath    string
}

func ParseSubjectKey(subjectKey string) SubjectKeyInfo {
	raw := strings.TrimSpace(subjectKey)
	institutionKey := GeneralInstitution
	subjectName := raw
	if idx := strings.Index(raw, SubjectKeySeparator); idx >= 0 {
		institutionKey = strings.TrimSpace(raw[:idx])
		if institutionKey == "" {
			institutionKey = GeneralInstitution
		}
		subjectName = strings.TrimSpace(raw[idx+len(SubjectKeySeparator):])
	}

	var institutionParts []string
	for _, item := range strings.Split(institutionKey, InstitutionKeySeparator) {
		if s := strings.TrimSpace(item); s != "" && s != GeneralInstitution {
			institutionParts = append(institutionParts, s)
		}
	}
	institutionDisplay := GeneralInstitution
	if len(institutionParts) > 0 {
		institutionDisplay = strings.Join(institutionParts, " / ")
	}

	return SubjectKeyInfo{
		SubjectKey:         raw,
		SubjectName:        subjectName,
		InstitutionKey:     institutionKey,
		InstitutionDisplay: institutionDisplay,
		InstitutionParts:   institutionParts,
		InstitutionPath:    strings.Join(institutionParts, "/"),
	}
}

// ObjectivePathInfo is the classification of an objective question-bank file.
type ObjectivePathInfo struct {
	RelativeParts      []string
	SubjectName        string
	ChapterName        string
	InstitutionParts   []string
	InstitutionKey     string
	InstitutionDisplay string
	SubjectKey         string
}

// ParseObjectivePath classifies a remote path under the objective root for the
// branch. Returns nil when the path does not match the convention, so callers
// can record the file as skipped rather than failed.
func ParseObjectivePath(tenantRoot, filePath, branch string) *ObjectivePathInfo {
	anchor := append(splitPath(tenantRoot), branch, objectiveFolder)
	relativeParts := relativePartsAfterAnchor(filePath, anchor)
	if len(relativeParts) == 0 {
		return nil
	}
	if strings.EqualFold(relativeParts[0], subjectsGroupFolder) {
		relativeParts = relativeParts[1:]
	}
	if len(relativeParts) < 2 {
		return nil
	}

	chapterName := fileStem(relativeParts[len(relativeParts)-1])
	subjectName := strings.TrimSpace(relativeParts[len(relativeParts)-2])
	if chapterName == "" || subjectName == "" {
		return nil
	}

	var institutionParts []string
	for _, item := range relativeParts[:len(relativeParts)-2] {
		if s := strings.TrimSpace(item); s != "" {
			institutionParts = append(institutionParts, s)
		}
	}
	institutionKey := GeneralInstitution
	institutionDisplay := GeneralInstitution
	if len(institutionParts) > 0 {
		institutionKey = strings.Join(institutionParts, InstitutionKeySeparator)
		institutionDisplay = strings.Join(institutionParts, " / ")
	}

	return &ObjectivePathInfo{
		RelativeParts:      relativeParts,
		SubjectName:        subjectName,
		ChapterName:        chapterName,
		InstitutionParts:   institutionParts,
		InstitutionKey:     institutionKey,
		InstitutionDisplay: institutionDisplay,
		SubjectKey:         BuildSubjectKey(institutionKey, subjectName),
	}
}

// ExamSourceInfo locates an exam-set source file inside the delivery tree.
// A zero Matched means the path is outside the recognized root; SourceName is
// still populated from the file stem for fallback naming.
type ExamSourceInfo struct {
	Matched       bool
	RelativeParts []string
	FolderParts   []string
	FolderPath    string
	Institution   string
	TopicPath     string
	SourceName    string
}

func examTypeFolder(examType string) string {
	if examType == "subjective" {
		return subjectiveFolder
	}
	return mcqExamFolder
}

func ParseExamSourcePath(tenantRoot, sourceFilePath, branch, examType string) ExamSourceInfo {
	anchor := append(splitPath(tenantRoot), branch, takeExamFolder, examTypeFolder(examType))
	relativeParts := relativePartsAfterAnchor(sourceFilePath, anchor)
	if len(relativeParts) == 0 {
		return ExamSourceInfo{
			Institution: GeneralInstitution,
			SourceName:  fileStem(sourceFilePath),
		}
	}

	folderParts := relativeParts[:len(relativeParts)-1]
	institution := GeneralInstitution
	if len(folderParts) > 0 {
		institution = folderParts[0]
	}
	var topicParts []string
	if len(folderParts) > 1 {
		topicParts = folderParts[1:]
	}

	return ExamSourceInfo{
		Matched:       true,
		RelativeParts: relativeParts,
		FolderParts:   folderParts,
		FolderPath:    strings.Join(folderParts, " / "),
		Institution:   institution,
		TopicPath:     strings.Join(topicParts, " / "),
		SourceName:    fileStem(relativeParts[len(relativeParts)-1]),
	}
}

// ObjectiveSubjectRoots lists the candidate remote folders a subject's chapter
// files may live under, most specific first.
func ObjectiveSubjectRoots(tenantRoot, branch, subjectKeyOrName string) []string {
	parsed := ParseSubjectKey(subjectKeyOrName)
	base := strings.TrimRight(tenantRoot, "/") + "/" + branch + "/" + objectiveFolder
	var candidates []string
	if parsed.InstitutionPath != "" {
		candidates = append(candidates, base+"/"+parsed.InstitutionPath+"/"+parsed.SubjectName)
	}
	candidates = append(candidates,
		base+"/"+subjectsGroupFolder+"/"+parsed.SubjectName,
		base+"/"+parsed.SubjectName,
	)
	seen := make(map[string]bool, len(candidates))
	var ordered []string
	for _, item := range candidates {
		if seen[item] {
			continue
		}
		seen[item] = true
		ordered = append(ordered, item)
	}
	return ordered
}
