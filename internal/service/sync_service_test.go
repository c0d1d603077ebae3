package service

import (
	"bridge4er_backend/internal/config"
	"bridge4er_backend/internal/model"
	"bridge4er_backend/pkg/database"
	"bridge4er_backend/pkg/logger"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

const testBranch = "Civil Engineering"

type fakeFile struct {
	data     []byte
	modified time.Time
}

// fakeFileStore serves an in-memory remote tree for engine and gate tests.
type fakeFileStore struct {
	mu          sync.Mutex
	files       map[string]fakeFile
	downloadErr map[string]error
	failList    bool
	listCalls   int
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{
		files:       make(map[string]fakeFile),
		downloadErr: make(map[string]error),
	}
}

func (f *fakeFileStore) add(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = fakeFile{data: []byte(content), modified: time.Unix(1700000000, 0)}
}

func (f *fakeFileStore) remove(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
}

func (f *fakeFileStore) List(ctx context.Context, path string, recursive bool) ([]FileEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		return nil, fmt.Errorf("list %s: remote unavailable", path)
	}
	prefix := strings.TrimRight(path, "/") + "/"
	var entries []FileEntry
	for filePath, file := range f.files {
		if strings.HasPrefix(filePath, prefix) {
			entries = append(entries, FileEntry{
				Path:     filePath,
				Size:     int64(len(file.data)),
				Modified: file.modified,
			})
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
	}
	return entries, nil
}

func (f *fakeFileStore) Download(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.downloadErr[path]; ok {
		return nil, err
	}
	file, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
	}
	return file.data, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestSyncService(t *testing.T, store RemoteFileStore) (*SyncService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{}
	cfg.Sync = config.SyncConfig{
		TenantRoot:      "/bridge4er",
		DefaultBranch:   testBranch,
		CooldownSeconds: 60,
		ReplaceExisting: true,
	}
	return NewSyncService(db, store, cfg), db
}

func objectivePath(parts ...string) string {
	return "/bridge4er/" + testBranch + "/Objective MCQs/" + strings.Join(parts, "/")
}

func mcqExamPath(parts ...string) string {
	return "/bridge4er/" + testBranch + "/Take Exam/Multiple Choice Exam/" + strings.Join(parts, "/")
}

const objectiveCSV = "question,option_a,option_b,option_c,option_d,correct_option\n" +
	"What is 2+2?,4,5,6,7,a\n" +
	"Capital of Nepal?,Kathmandu,Pokhara,Lalitpur,Biratnagar,Kathmandu\n" +
	"Broken row with no answer,x,y,z,w,\n"

func TestSyncObjectiveBankImportsQuestions(t *testing.T) {
	store := newFakeFileStore()
	store.add(objectivePath("NEC", "Surveying", "Chapter 1.csv"), objectiveCSV)
	svc, db := newTestSyncService(t, store)

	summary, err := svc.SyncObjectiveBank(context.Background(), testBranch, true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.DiscoveredFiles)
	assert.Equal(t, 1, summary.ProcessedFiles)
	assert.Equal(t, 1, summary.SubjectsCreated)
	assert.Equal(t, 1, summary.ChaptersCreated)
	assert.Equal(t, 2, summary.ImportedQuestions)
	assert.Equal(t, 1, summary.SkippedRows)
	assert.Equal(t, 0, summary.SkippedFiles)
	assert.Equal(t, 0, summary.ErrorFiles)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, "ok", summary.Files[0].Status)
	assert.Equal(t, "NEC", summary.Files[0].Institution)

	var subject model.Subject
	require.NoError(t, db.Where("branch = ?", testBranch).First(&subject).Error)
	assert.Equal(t, "NEC :: Surveying", subject.Name)

	var chapter model.Chapter
	require.NoError(t, db.Where("subject_id = ?", subject.ID).First(&chapter).Error)
	assert.Equal(t, "Chapter 1", chapter.Name)
	assert.Equal(t, 1, chapter.Order)

	var count int64
	require.NoError(t, db.Model(&model.MCQQuestion{}).Where("chapter_id = ?", chapter.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSyncObjectiveBankIdempotent(t *testing.T) {
	store := newFakeFileStore()
	store.add(objectivePath("Surveying", "Chapter 1.csv"), objectiveCSV)
	svc, db := newTestSyncService(t, store)

	_, err := svc.SyncObjectiveBank(context.Background(), testBranch, true)
	require.NoError(t, err)
	summary, err := svc.SyncObjectiveBank(context.Background(), testBranch, true)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.SubjectsCreated)
	assert.Equal(t, 0, summary.ChaptersCreated)

	var subjects, chapters, questions int64
	db.Model(&model.Subject{}).Count(&subjects)
	db.Model(&model.Chapter{}).Count(&chapters)
	db.Model(&model.MCQQuestion{}).Count(&questions)
	assert.EqualValues(t, 1, subjects)
	assert.EqualValues(t, 1, chapters)
	assert.EqualValues(t, 2, questions)
}

func TestSyncObjectiveBankChapterOrderIncrements(t *testing.T) {
	store := newFakeFileStore()
	store.add(objectivePath("Surveying", "Alpha.csv"), objectiveCSV)
	store.add(objectivePath("Surveying", "Beta.csv"), objectiveCSV)
	svc, db := newTestSyncService(t, store)

	_, err := svc.SyncObjectiveBank(context.Background(), testBranch, true)
	require.NoError(t, err)

	var chapters []model.Chapter
	require.NoError(t, db.Order("order_index ASC").Find(&chapters).Error)
	require.Len(t, chapters, 2)
	assert.Equal(t, "Alpha", chapters[0].Name)
	assert.Equal(t, 1, chapters[0].Order)
	assert.Equal(t, 2, chapters[1].Order)
}

func TestSyncObjectiveBankUnclassifiablePathSkipped(t *testing.T) {
	store := newFakeFileStore()
	store.add(objectivePath("orphan.csv"), objectiveCSV)
	svc, _ := newTestSyncService(t, store)

	summary, err := svc.SyncObjectiveBank(context.Background(), testBranch, true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedFiles)
	assert.Equal(t, 0, summary.ErrorFiles)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, "skipped", summary.Files[0].Status)
	assert.NotEmpty(t, summary.Files[0].Reason)
}

func TestSyncObjectiveBankFileErrorDoesNotAbort(t *testing.T) {
	store := newFakeFileStore()
	brokenPath := objectivePath("Surveying", "Broken.csv")
	store.add(brokenPath, objectiveCSV)
	store.add(objectivePath("Surveying", "Good.csv"), objectiveCSV)
	store.downloadErr[brokenPath] = fmt.Errorf("download failed: connection reset")
	svc, db := newTestSyncService(t, store)

	summary, err := svc.SyncObjectiveBank(context.Background(), testBranch, true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ErrorFiles)
	assert.Equal(t, 2, summary.ImportedQuestions)

	var questions int64
	db.Model(&model.MCQQuestion{}).Count(&questions)
	assert.EqualValues(t, 2, questions)
}

func TestSyncObjectiveBankMissingRootIsEmpty(t *testing.T) {
	store := newFakeFileStore()
	svc, _ := newTestSyncService(t, store)

	summary, err := svc.SyncObjectiveBank(context.Background(), testBranch, true)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.DiscoveredFiles)
	assert.Empty(t, summary.Files)
}

const mcqExamJSON = `{
	"examInfo": {"title": "Midterm", "time": "2 hours", "ispaid": "False"},
	"instructions": ["Answer everything"],
	"questions": [
		{"question": "Q1", "option_a": "1", "option_b": "2", "option_c": "3", "option_d": "4", "correct_option": "a"},
		{"question": "Q2", "option_a": "x", "option_b": "y", "option_c": "z", "option_d": "w", "correct_option": "2"}
	]
}`

func TestSyncExamSetsCreatesManagedSet(t *testing.T) {
	store := newFakeFileStore()
	store.add(mcqExamPath("NEC", "midterm.json"), mcqExamJSON)
	svc, db := newTestSyncService(t, store)

	result, err := svc.SyncExamSets(context.Background(), testBranch, true)
	require.NoError(t, err)
	require.NotNil(t, result.MCQ)
	require.NotNil(t, result.Subjective)
	assert.Equal(t, 1, result.MCQ.SetsCreated)
	assert.Equal(t, 2, result.MCQ.ImportedQuestions)
	assert.Equal(t, 0, result.Subjective.DiscoveredFiles)

	var set model.ExamSet
	require.NoError(t, db.Where("branch = ?", testBranch).First(&set).Error)
	assert.Equal(t, "NEC - Midterm", set.Name)
	assert.True(t, set.ManagedBySync)
	assert.True(t, set.IsActive)
	assert.True(t, set.IsFree)
	assert.True(t, set.Fee.IsZero())
	assert.Equal(t, 7200, set.DurationSeconds)
	assert.Equal(t, mcqExamPath("NEC", "midterm.json"), set.SourceFilePath)
	assert.Contains(t, set.Instructions, "Answer everything")

	var questions []model.ExamQuestion
	require.NoError(t, db.Where("exam_set_id = ?", set.ID).Order("order_index ASC").Find(&questions).Error)
	require.Len(t, questions, 2)
	assert.Equal(t, "a", questions[0].CorrectOption)
	assert.Equal(t, "b", questions[1].CorrectOption)
}

func TestSyncExamSetsIdempotent(t *testing.T) {
	store := newFakeFileStore()
	store.add(mcqExamPath("midterm.json"), mcqExamJSON)
	svc, db := newTestSyncService(t, store)

	first, err := svc.SyncExamSets(context.Background(), testBranch, true)
	require.NoError(t, err)
	second, err := svc.SyncExamSets(context.Background(), testBranch, true)
	require.NoError(t, err)

	assert.Equal(t, 1, first.MCQ.SetsCreated)
	assert.Equal(t, 0, second.MCQ.SetsCreated)
	assert.Equal(t, first.MCQ.ImportedQuestions, second.MCQ.ImportedQuestions)

	var sets, questions int64
	db.Model(&model.ExamSet{}).Count(&sets)
	db.Model(&model.ExamQuestion{}).Count(&questions)
	assert.EqualValues(t, 1, sets)
	assert.EqualValues(t, 2, questions)
}

func TestSyncExamSetsStaleDeactivation(t *testing.T) {
	store := newFakeFileStore()
	store.add(mcqExamPath("present.json"), mcqExamJSON)
	svc, db := newTestSyncService(t, store)

	stale := model.ExamSet{
		Name: "Vanished", Branch: testBranch, ExamType: model.ExamTypeMCQ,
		IsActive: true, ManagedBySync: true,
		SourceFilePath: mcqExamPath("vanished.json"),
	}
	manual := model.ExamSet{
		Name: "Hand Authored", Branch: testBranch, ExamType: model.ExamTypeMCQ,
		IsActive: true, ManagedBySync: false,
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&manual).Error)

	result, err := svc.SyncExamSets(context.Background(), testBranch, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MCQ.SetsDeactivated)
	assert.Empty(t, result.MCQ.PruneSkipped)

	var reloaded model.ExamSet
	require.NoError(t, db.First(&reloaded, stale.ID).Error)
	assert.False(t, reloaded.IsActive)

	var reloadedManual model.ExamSet
	require.NoError(t, db.First(&reloadedManual, manual.ID).Error)
	assert.True(t, reloadedManual.IsActive, "manual sets are never deactivated")

	var present model.ExamSet
	require.NoError(t, db.Where("source_file_path = ?", mcqExamPath("present.json")).First(&present).Error)
	assert.True(t, present.IsActive)
}

func TestSyncExamSetsPruneSkippedOnError(t *testing.T) {
	store := newFakeFileStore()
	brokenPath := mcqExamPath("broken.json")
	store.add(brokenPath, mcqExamJSON)
	store.downloadErr[brokenPath] = fmt.Errorf("download failed: timeout")
	svc, db := newTestSyncService(t, store)

	stale := model.ExamSet{
		Name: "Vanished", Branch: testBranch, ExamType: model.ExamTypeMCQ,
		IsActive: true, ManagedBySync: true,
		SourceFilePath: mcqExamPath("vanished.json"),
	}
	require.NoError(t, db.Create(&stale).Error)

	result, err := svc.SyncExamSets(context.Background(), testBranch, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MCQ.ErrorFiles)
	assert.Equal(t, "sync_errors", result.MCQ.PruneSkipped)
	assert.Equal(t, 0, result.MCQ.SetsDeactivated)

	var reloaded model.ExamSet
	require.NoError(t, db.First(&reloaded, stale.ID).Error)
	assert.True(t, reloaded.IsActive, "deactivation is skipped when any file errors")
}

func TestSyncExamSetsNameDisambiguation(t *testing.T) {
	store := newFakeFileStore()
	store.add(mcqExamPath("midterm1.json"), mcqExamJSON)
	store.add(mcqExamPath("midterm2.json"), mcqExamJSON)
	svc, db := newTestSyncService(t, store)

	result, err := svc.SyncExamSets(context.Background(), testBranch, true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.MCQ.SetsCreated)

	var sets []model.ExamSet
	require.NoError(t, db.Order("id ASC").Find(&sets).Error)
	require.Len(t, sets, 2)
	assert.Equal(t, "Midterm", sets[0].Name)
	assert.NotEqual(t, sets[0].Name, sets[1].Name)
	assert.Contains(t, sets[1].Name, "Midterm #")

	// Re-running keeps both sets and their names stable.
	firstNames := []string{sets[0].Name, sets[1].Name}
	_, err = svc.SyncExamSets(context.Background(), testBranch, true)
	require.NoError(t, err)
	require.NoError(t, db.Order("id ASC").Find(&sets).Error)
	require.Len(t, sets, 2)
	assert.Equal(t, firstNames, []string{sets[0].Name, sets[1].Name})
}

func TestSyncExamSetsManualNameCollision(t *testing.T) {
	store := newFakeFileStore()
	store.add(mcqExamPath("midterm.json"), mcqExamJSON)
	svc, db := newTestSyncService(t, store)

	manual := model.ExamSet{
		Name: "Midterm", Branch: testBranch, ExamType: model.ExamTypeMCQ,
		IsActive: true, ManagedBySync: false,
	}
	require.NoError(t, db.Create(&manual).Error)

	_, err := svc.SyncExamSets(context.Background(), testBranch, true)
	require.NoError(t, err)

	var reloaded model.ExamSet
	require.NoError(t, db.First(&reloaded, manual.ID).Error)
	assert.Equal(t, "Midterm", reloaded.Name)
	assert.False(t, reloaded.ManagedBySync, "the manual set is left alone")

	var synced model.ExamSet
	require.NoError(t, db.Where("managed_by_sync = ?", true).First(&synced).Error)
	assert.Contains(t, synced.Name, "Midterm #")
}

func TestFolderSignatureReflectsChanges(t *testing.T) {
	store := newFakeFileStore()
	svc, _ := newTestSyncService(t, store)
	root := "/bridge4er/" + testBranch + "/Objective MCQs"

	empty, err := svc.FolderSignature(context.Background(), root)
	require.NoError(t, err)

	store.add(objectivePath("Surveying", "Chapter 1.csv"), objectiveCSV)
	withFile, err := svc.FolderSignature(context.Background(), root)
	require.NoError(t, err)
	assert.NotEqual(t, empty, withFile)

	again, err := svc.FolderSignature(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, withFile, again)

	store.remove(objectivePath("Surveying", "Chapter 1.csv"))
	afterRemove, err := svc.FolderSignature(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, empty, afterRemove)
}
