package service

import (
	"bridge4er_backend/internal/config"
	"bridge4er_backend/internal/model"
	"bridge4er_backend/pkg/logger"
	"bridge4er_backend/pkg/monitoring"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	fileStatusOK      = "ok"
	fileStatusSkipped = "skipped"
	fileStatusError   = "error"

	examSetNameMaxLen   = 200
	defaultExamSetName  = "Synced Exam Set"
	insertBatchSize     = 200
	reasonNoValidRows   = "no_valid_questions"
	reasonBadObjective  = "expected objective path format: <Institution>/<Subject>/<ChapterFile> or Subjects/<Subject>/<ChapterFile>"
	pruneSkippedSyncErr = "sync_errors"
)

// FileResult records the outcome of one source file within a sync pass.
// Status is one of ok, skipped, error; skipped files carry a reason and error
// files the underlying message. A file's failure never aborts the pass.
type FileResult struct {
	Path     string `json:"path"`
	Status   string `json:"status"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`

	Institution    string `json:"institution,omitempty"`
	Subject        string `json:"subject,omitempty"`
	SubjectDisplay string `json:"subjectDisplay,omitempty"`
	Chapter        string `json:"chapter,omitempty"`
	ExamSet        string `json:"examSet,omitempty"`
	FolderPath     string `json:"folderPath,omitempty"`
}

// ObjectiveSyncSummary is the outcome of one objective question-bank pass.
type ObjectiveSyncSummary struct {
	RunID             string       `json:"runId"`
	Branch            string       `json:"branch"`
	RootPath          string       `json:"rootPath"`
	DiscoveredFiles   int          `json:"discoveredFiles"`
	ProcessedFiles    int          `json:"processedFiles"`
	SubjectsCreated   int          `json:"subjectsCreated"`
	ChaptersCreated   int          `json:"chaptersCreated"`
	ImportedQuestions int          `json:"importedQuestions"`
	SkippedRows       int          `json:"skippedRows"`
	SkippedFiles      int          `json:"skippedFiles"`
	ErrorFiles        int          `json:"errorFiles"`
	Files             []FileResult `json:"files"`
}

// ExamSetSyncSummary is the outcome of one exam-set pass for a single exam
// type. PruneSkipped is set instead of SetsDeactivated when file errors made
// stale-set pruning unsafe.
type ExamSetSyncSummary struct {
	RunID             string       `json:"runId"`
	Branch            string       `json:"branch"`
	ExamType          string       `json:"examType"`
	RootPath          string       `json:"rootPath"`
	DiscoveredFiles   int          `json:"discoveredFiles"`
	ProcessedFiles    int          `json:"processedFiles"`
	SetsCreated       int          `json:"setsCreated"`
	SetsDeactivated   int          `json:"setsDeactivated"`
	PruneSkipped      string       `json:"pruneSkipped,omitempty"`
	ImportedQuestions int          `json:"importedQuestions"`
	SkippedRows       int          `json:"skippedRows"`
	SkippedFiles      int          `json:"skippedFiles"`
	ErrorFiles        int          `json:"errorFiles"`
	Files             []FileResult `json:"files"`
}

// ExamSetsSyncResult bundles the per-type summaries of one exam-set sync.
type ExamSetsSyncResult struct {
	MCQ        *ExamSetSyncSummary `json:"mcq"`
	Subjective *ExamSetSyncSummary `json:"subjective"`
}

// SyncService reconciles the remote content library against the database
// mirror. Both entry points are idempotent and safe to run concurrently for
// the same branch: entity resolution is by natural key and question
// replacement happens inside one transaction per chapter or set.
type SyncService struct {
	db         *gorm.DB
	store      RemoteFileStore
	tenantRoot string
}

func NewSyncService(db *gorm.DB, store RemoteFileStore, cfg *config.Config) *SyncService {
	return &SyncService{
		db:         db,
		store:      store,
		tenantRoot: cfg.Sync.TenantRoot,
	}
}

func (s *SyncService) branchRoot(branch string, parts ...string) string {
	segments := append([]string{strings.TrimRight(s.tenantRoot, "/"), branch}, parts...)
	return strings.Join(segments, "/")
}

func (s *SyncService) objectiveRoot(branch string) string {
	return s.branchRoot(branch, objectiveFolder)
}

func (s *SyncService) examRoot(branch, examType string) string {
	return s.branchRoot(branch, takeExamFolder, examTypeFolder(examType))
}

// listSupportedFiles returns the sorted importable file paths under root.
// A missing root is an empty tree, not a failure.
func (s *SyncService) listSupportedFiles(ctx context.Context, rootPath string) ([]string, error) {
	entries, err := s.store.List(ctx, rootPath, true)
	if err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir || entry.Path == "" {
			continue
		}
		if IsSupportedFile(entry.Path) {
			paths = append(paths, entry.Path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// FolderSignature hashes the listing of one remote root so callers can detect
// "nothing changed" without re-downloading anything. A missing root hashes as
// an empty listing.
func (s *SyncService) FolderSignature(ctx context.Context, rootPath string) (string, error) {
	entries, err := s.store.List(ctx, rootPath, true)
	if err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			entries = nil
		} else {
			return "", err
		}
	}
	var lines []string
	for _, entry := range entries {
		if entry.IsDir || entry.Path == "" || !IsSupportedFile(entry.Path) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s|%s|%d", entry.Path, entry.Modified.UTC().Format(time.RFC3339), entry.Size))
	}
	sort.Strings(lines)
	sum := sha1.Sum([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:]), nil
}

// SyncObjectiveBank reconciles the objective question bank for one branch.
// Each supported file maps to one chapter; with replaceExisting the chapter's
// questions are replaced wholesale. The listing failure aborts the pass;
// individual file failures are recorded and skipped over.
func (s *SyncService) SyncObjectiveBank(ctx context.Context, branch string, replaceExisting bool) (*ObjectiveSyncSummary, error) {
	started := time.Now()
	defer func() {
		monitoring.SyncDuration.WithLabelValues("objective").Observe(time.Since(started).Seconds())
	}()

	rootPath := s.objectiveRoot(branch)
	filePaths, err := s.listSupportedFiles(ctx, rootPath)
	if err != nil {
		return nil, fmt.Errorf("list objective root %s: %w", rootPath, err)
	}

	summary := &ObjectiveSyncSummary{
		RunID:           uuid.NewString(),
		Branch:          branch,
		RootPath:        rootPath,
		DiscoveredFiles: len(filePaths),
		Files:           make([]FileResult, 0, len(filePaths)),
	}

	for _, filePath := range filePaths {
		item := s.syncObjectiveFile(ctx, branch, filePath, replaceExisting, summary)
		switch item.Status {
		case fileStatusError:
			summary.ErrorFiles++
		case fileStatusSkipped:
			summary.SkippedFiles++
			summary.ProcessedFiles++
		default:
			summary.ProcessedFiles++
		}
		summary.Files = append(summary.Files, item)
		monitoring.SyncFiles.WithLabelValues("objective", item.Status).Inc()
	}

	logger.Log.Info("objective bank sync finished",
		zap.String("runId", summary.RunID),
		zap.String("branch", branch),
		zap.Int("discovered", summary.DiscoveredFiles),
		zap.Int("imported", summary.ImportedQuestions),
		zap.Int("skippedFiles", summary.SkippedFiles),
		zap.Int("errorFiles", summary.ErrorFiles))
	return summary, nil
}

func (s *SyncService) syncObjectiveFile(ctx context.Context, branch, filePath string, replaceExisting bool, summary *ObjectiveSyncSummary) FileResult {
	item := FileResult{Path: filePath, Status: fileStatusOK}

	raw, err := s.store.Download(ctx, filePath)
	if err != nil {
		item.Status = fileStatusError
		item.Error = err.Error()
		return item
	}

	rows, err := ParseRows(filePath, raw)
	if err != nil {
		item.Status = fileStatusSkipped
		item.Reason = err.Error()
		return item
	}

	var valid []NormalizedQuestion
	for _, row := range rows {
		if q := NormalizeMCQRow(row); q.IsValidMCQ() {
			valid = append(valid, q)
		}
	}
	skippedRows := len(rows) - len(valid)
	item.Skipped = skippedRows
	summary.SkippedRows += skippedRows

	if len(valid) == 0 {
		item.Status = fileStatusSkipped
		item.Reason = reasonNoValidRows
		return item
	}

	info := ParseObjectivePath(s.tenantRoot, filePath, branch)
	if info == nil {
		item.Status = fileStatusSkipped
		item.Reason = reasonBadObjective
		return item
	}

	subject, subjectCreated, err := s.getOrCreateSubject(ctx, branch, info.SubjectKey)
	if err != nil {
		item.Status = fileStatusError
		item.Error = err.Error()
		return item
	}
	if subjectCreated {
		summary.SubjectsCreated++
	}

	chapter, chapterCreated, err := s.getOrCreateChapter(ctx, subject, info.ChapterName)
	if err != nil {
		item.Status = fileStatusError
		item.Error = err.Error()
		return item
	}
	if chapterCreated {
		summary.ChaptersCreated++
	}

	questions := make([]model.MCQQuestion, 0, len(valid))
	for _, q := range valid {
		questions = append(questions, model.MCQQuestion{
			ChapterID:        chapter.ID,
			QuestionHeader:   q.QuestionHeader,
			QuestionText:     q.QuestionText,
			QuestionImageURL: q.QuestionImageURL,
			OptionA:          q.OptionA,
			OptionB:          q.OptionB,
			OptionC:          q.OptionC,
			OptionD:          q.OptionD,
			CorrectOption:    q.CorrectOption,
			Explanation:      q.Explanation,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replaceExisting {
			if err := tx.Where("chapter_id = ?", chapter.ID).Delete(&model.MCQQuestion{}).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(questions, insertBatchSize).Error
	})
	if err != nil {
		item.Status = fileStatusError
		item.Error = err.Error()
		return item
	}

	item.Institution = info.InstitutionDisplay
	item.Subject = subject.Name
	item.SubjectDisplay = info.SubjectName
	item.Chapter = chapter.Name
	item.Imported = len(questions)
	summary.ImportedQuestions += len(questions)
	return item
}

func (s *SyncService) getOrCreateSubject(ctx context.Context, branch, name string) (*model.Subject, bool, error) {
	var subject model.Subject
	err := s.db.WithContext(ctx).Where("name = ? AND branch = ?", name, branch).First(&subject).Error
	if err == nil {
		return &subject, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	subject = model.Subject{Name: name, Branch: branch}
	if createErr := s.db.WithContext(ctx).Create(&subject).Error; createErr != nil {
		// A concurrent sync may have created it between lookup and insert.
		if retryErr := s.db.WithContext(ctx).Where("name = ? AND branch = ?", name, branch).First(&subject).Error; retryErr == nil {
			return &subject, false, nil
		}
		return nil, false, createErr
	}
	return &subject, true, nil
}

func (s *SyncService) getOrCreateChapter(ctx context.Context, subject *model.Subject, name string) (*model.Chapter, bool, error) {
	var chapter model.Chapter
	err := s.db.WithContext(ctx).Where("subject_id = ? AND name = ?", subject.ID, name).First(&chapter).Error
	if err == nil {
		return &chapter, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	var maxOrder int
	if err := s.db.WithContext(ctx).Model(&model.Chapter{}).
		Where("subject_id = ?", subject.ID).
		Select("COALESCE(MAX(order_index), 0)").
		Scan(&maxOrder).Error; err != nil {
		return nil, false, err
	}

	chapter = model.Chapter{SubjectID: subject.ID, Name: name, Order: maxOrder + 1}
	if createErr := s.db.WithContext(ctx).Create(&chapter).Error; createErr != nil {
		if retryErr := s.db.WithContext(ctx).Where("subject_id = ? AND name = ?", subject.ID, name).First(&chapter).Error; retryErr == nil {
			return &chapter, false, nil
		}
		return nil, false, createErr
	}
	return &chapter, true, nil
}

// SyncExamSets reconciles both exam-set trees for a branch. The MCQ and
// subjective roots are processed independently; a listing failure on either
// aborts the whole call so the throttle layer can report it.
func (s *SyncService) SyncExamSets(ctx context.Context, branch string, replaceExisting bool) (*ExamSetsSyncResult, error) {
	mcq, err := s.syncExamSetType(ctx, branch, string(model.ExamTypeMCQ), replaceExisting)
	if err != nil {
		return nil, err
	}
	subjective, err := s.syncExamSetType(ctx, branch, string(model.ExamTypeSubjective), replaceExisting)
	if err != nil {
		return nil, err
	}
	return &ExamSetsSyncResult{MCQ: mcq, Subjective: subjective}, nil
}

func (s *SyncService) syncExamSetType(ctx context.Context, branch, examType string, replaceExisting bool) (*ExamSetSyncSummary, error) {
	started := time.Now()
	kind := "exam_" + examType
	defer func() {
		monitoring.SyncDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}()

	rootPath := s.examRoot(branch, examType)
	filePaths, err := s.listSupportedFiles(ctx, rootPath)
	if err != nil {
		return nil, fmt.Errorf("list exam root %s: %w", rootPath, err)
	}

	summary := &ExamSetSyncSummary{
		RunID:           uuid.NewString(),
		Branch:          branch,
		ExamType:        examType,
		RootPath:        rootPath,
		DiscoveredFiles: len(filePaths),
		Files:           make([]FileResult, 0, len(filePaths)),
	}

	syncedSetIDs := make(map[uint]bool)
	for _, filePath := range filePaths {
		item := s.syncExamSetFile(ctx, branch, examType, filePath, replaceExisting, summary, syncedSetIDs)
		switch item.Status {
		case fileStatusError:
			summary.ErrorFiles++
		case fileStatusSkipped:
			summary.SkippedFiles++
			summary.ProcessedFiles++
		default:
			summary.ProcessedFiles++
		}
		summary.Files = append(summary.Files, item)
		monitoring.SyncFiles.WithLabelValues(kind, item.Status).Inc()
	}

	// Retiring sets whose files vanished is only safe when the whole listing
	// imported cleanly; a transient error could otherwise mass-deactivate.
	if summary.ErrorFiles == 0 {
		deactivated, err := s.deactivateStaleSets(ctx, branch, examType, syncedSetIDs)
		if err != nil {
			return nil, err
		}
		summary.SetsDeactivated = deactivated
	} else {
		summary.PruneSkipped = pruneSkippedSyncErr
	}

	logger.Log.Info("exam set sync finished",
		zap.String("runId", summary.RunID),
		zap.String("branch", branch),
		zap.String("examType", examType),
		zap.Int("discovered", summary.DiscoveredFiles),
		zap.Int("setsCreated", summary.SetsCreated),
		zap.Int("setsDeactivated", summary.SetsDeactivated),
		zap.Int("errorFiles", summary.ErrorFiles))
	return summary, nil
}

func (s *SyncService) syncExamSetFile(ctx context.Context, branch, examType, filePath string, replaceExisting bool, summary *ExamSetSyncSummary, syncedSetIDs map[uint]bool) FileResult {
	item := FileResult{Path: filePath, Status: fileStatusOK}

	raw, err := s.store.Download(ctx, filePath)
	if err != nil {
		item.Status = fileStatusError
		item.Error = err.Error()
		return item
	}

	rows, err := ParseRows(filePath, raw)
	if err != nil {
		item.Status = fileStatusSkipped
		item.Reason = err.Error()
		return item
	}

	questionRows, examInfo, instructions := ExtractExamRowsAndMetadata(rows)

	var valid []NormalizedQuestion
	for _, row := range questionRows {
		if q := NormalizeExamRow(row, examType); q.IsValidExamRow(examType) {
			valid = append(valid, q)
		}
	}
	skippedRows := len(questionRows) - len(valid)
	item.Skipped = skippedRows
	summary.SkippedRows += skippedRows

	if len(valid) == 0 {
		item.Status = fileStatusSkipped
		item.Reason = reasonNoValidRows
		return item
	}

	sourceSetName := fileStem(filePath)
	if sourceSetName == "" {
		item.Status = fileStatusSkipped
		item.Reason = "invalid exam set file name"
		return item
	}

	attrs := BuildExamSetUpdate(examType, sourceSetName, examInfo, instructions)
	desiredName := s.candidateSyncedExamSetName(filePath, branch, examType, firstNonEmpty(attrs.Name, sourceSetName))

	examSet, create, err := s.resolveExamSetForFile(ctx, branch, examType, sourceSetName, desiredName, filePath)
	if err != nil {
		item.Status = fileStatusError
		item.Error = err.Error()
		return item
	}
	if create {
		examSet = &model.ExamSet{
			Name:     sourceSetName,
			Branch:   branch,
			ExamType: model.ExamType(examType),
		}
	}

	examSet.Description = attrs.Description
	examSet.Instructions = attrs.Instructions
	examSet.IsFree = attrs.IsFree
	examSet.Fee = attrs.Fee
	examSet.DurationSeconds = attrs.DurationSeconds
	examSet.GraceSeconds = attrs.GraceSeconds
	examSet.NegativeMarking = attrs.NegativeMarking
	examSet.IsActive = attrs.IsActive
	examSet.ManagedBySync = true
	examSet.SourceFilePath = filePath

	finalName, err := s.ensureUniqueExamSetName(ctx, desiredName, branch, examType, filePath, examSet.ID)
	if err != nil {
		item.Status = fileStatusError
		item.Error = err.Error()
		return item
	}
	if finalName != "" {
		examSet.Name = finalName
	}

	questions := make([]model.ExamQuestion, 0, len(valid))
	for i, q := range valid {
		order := q.Order
		if order <= 0 {
			order = i + 1
		}
		questions = append(questions, model.ExamQuestion{
			Order:            order,
			QuestionHeader:   q.QuestionHeader,
			QuestionText:     q.QuestionText,
			QuestionImageURL: q.QuestionImageURL,
			OptionA:          q.OptionA,
			OptionB:          q.OptionB,
			OptionC:          q.OptionC,
			OptionD:          q.OptionD,
			CorrectOption:    q.CorrectOption,
			Explanation:      q.Explanation,
			Marks:            q.Marks,
		})
	}

	// One transaction per set so readers never see a half-replaced exam.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(examSet).Error; err != nil {
			return err
		}
		if replaceExisting {
			if err := tx.Where("exam_set_id = ?", examSet.ID).Delete(&model.ExamQuestion{}).Error; err != nil {
				return err
			}
		}
		for i := range questions {
			questions[i].ExamSetID = examSet.ID
		}
		return tx.CreateInBatches(questions, insertBatchSize).Error
	})
	if err != nil {
		item.Status = fileStatusError
		item.Error = err.Error()
		return item
	}

	if create {
		summary.SetsCreated++
	}
	syncedSetIDs[examSet.ID] = true

	sourceMeta := ParseExamSourcePath(s.tenantRoot, filePath, branch, examType)
	item.ExamSet = examSet.Name
	item.Institution = sourceMeta.Institution
	item.FolderPath = sourceMeta.FolderPath
	item.Imported = len(questions)
	summary.ImportedQuestions += len(questions)
	return item
}

// resolveExamSetForFile finds the set a source file should update: first by
// the path it was last synced from, then by its legacy file-stem name, then by
// the disambiguated name. Name matches apply only to managed sets not already
// bound to a different source file, so a manually authored set with a
// colliding name is never adopted (it falls through to suffix disambiguation)
// and two files sharing a title each keep their own set.
func (s *SyncService) resolveExamSetForFile(ctx context.Context, branch, examType, sourceSetName, desiredName, filePath string) (*model.ExamSet, bool, error) {
	var examSet model.ExamSet

	err := s.db.WithContext(ctx).
		Where("branch = ? AND exam_type = ? AND source_file_path = ?", branch, examType, filePath).
		Order("id DESC").First(&examSet).Error
	if err == nil {
		return &examSet, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	byName := func(name string) (*model.ExamSet, error) {
		var candidate model.ExamSet
		findErr := s.db.WithContext(ctx).
			Where("branch = ? AND exam_type = ? AND name = ? AND managed_by_sync = ?", branch, examType, name, true).
			Where("source_file_path = ? OR source_file_path = ?", "", filePath).
			Order("id DESC").First(&candidate).Error
		if findErr == nil {
			return &candidate, nil
		}
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, findErr
	}

	if found, err := byName(sourceSetName); err != nil {
		return nil, false, err
	} else if found != nil {
		return found, false, nil
	}

	if desiredName != "" && desiredName != sourceSetName {
		if found, err := byName(desiredName); err != nil {
			return nil, false, err
		} else if found != nil {
			return found, false, nil
		}
	}

	return nil, true, nil
}

// candidateSyncedExamSetName qualifies an extracted title with the folder path
// the file lives in, so "Midterm" files in different topic folders get
// distinct human-readable names.
func (s *SyncService) candidateSyncedExamSetName(filePath, branch, examType, baseName string) string {
	parsed := ParseExamSourcePath(s.tenantRoot, filePath, branch, examType)
	fallbackName := firstNonEmpty(parsed.SourceName, fileStem(filePath))
	cleanedBase := firstNonEmpty(baseName, fallbackName)

	candidate := cleanedBase
	if folderPath := strings.TrimSpace(parsed.FolderPath); folderPath != "" {
		if !strings.HasPrefix(strings.ToLower(cleanedBase), strings.ToLower(folderPath)) {
			candidate = folderPath + " - " + cleanedBase
		}
	}
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		candidate = firstNonEmpty(fallbackName, defaultExamSetName)
	}
	return truncate(candidate, examSetNameMaxLen)
}

// ensureUniqueExamSetName resolves name collisions under (branch, examType)
// with a deterministic suffix derived from the source path, so re-running the
// sync assigns the same disambiguated name.
func (s *SyncService) ensureUniqueExamSetName(ctx context.Context, name, branch, examType, sourceHint string, excludeID uint) (string, error) {
	base := strings.TrimSpace(name)
	if base == "" {
		base = defaultExamSetName
	}
	base = truncate(base, examSetNameMaxLen)

	taken, err := s.examSetNameTaken(ctx, base, branch, examType, excludeID)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	hint := sourceHint
	if hint == "" {
		hint = base
	}
	sum := sha1.Sum([]byte(hint))
	digest := hex.EncodeToString(sum[:])[:6]

	for counter := 1; counter < 50; counter++ {
		suffix := "#" + digest + "-" + strconv.Itoa(counter)
		maxLen := examSetNameMaxLen - len(suffix) - 1
		if maxLen < 1 {
			maxLen = 1
		}
		candidate := strings.TrimSpace(strings.TrimRight(truncate(base, maxLen), " ") + " " + suffix)
		taken, err := s.examSetNameTaken(ctx, candidate, branch, examType, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return truncate(strings.TrimRight(truncate(base, 180), " ")+" #"+digest, examSetNameMaxLen), nil
}

func (s *SyncService) examSetNameTaken(ctx context.Context, name, branch, examType string, excludeID uint) (bool, error) {
	query := s.db.WithContext(ctx).Model(&model.ExamSet{}).
		Where("name = ? AND branch = ? AND exam_type = ?", name, branch, examType)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SyncService) deactivateStaleSets(ctx context.Context, branch, examType string, syncedSetIDs map[uint]bool) (int, error) {
	query := s.db.WithContext(ctx).Model(&model.ExamSet{}).
		Where("branch = ? AND exam_type = ? AND managed_by_sync = ? AND is_active = ?", branch, examType, true, true)
	if len(syncedSetIDs) > 0 {
		ids := make([]uint, 0, len(syncedSetIDs))
		for id := range syncedSetIDs {
			ids = append(ids, id)
		}
		query = query.Where("id NOT IN ?", ids)
	}
	result := query.Update("is_active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
