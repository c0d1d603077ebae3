package service

import (
	"bridge4er_backend/internal/config"
	"bridge4er_backend/internal/model"
	"bridge4er_backend/internal/repository"
	"bridge4er_backend/internal/util"
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
)

const (
	minPageSize = 5
	maxPageSize = 50
)

// SubjectView is a subject row with its institution prefix decomposed for
// display.
type SubjectView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	SubjectName string `json:"subjectName"`
	Institution string `json:"institution"`
}

type ChapterView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// QuestionPage is one page of a chapter's question bank.
type QuestionPage struct {
	Count      int64               `json:"count"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
	Results    []model.MCQQuestion `json:"results"`
}

// ExamSetView is an exam set row plus its question count.
type ExamSetView struct {
	model.ExamSet
	QuestionCount int64 `json:"questionCount"`
}

// ContentService serves the read side of the content library. Every listing
// first runs a gated sync-if-stale check, so content stays fresh without a
// background scheduler; the gate's cooldown keeps read-heavy traffic from
// triggering repeated remote scans.
type ContentService struct {
	Subjects *repository.SubjectRepository
	ExamSets *repository.ExamSetRepository
	Gate     *SyncGate

	mu      sync.RWMutex
	syncCfg config.SyncConfig
}

func NewContentService(subjects *repository.SubjectRepository, examSets *repository.ExamSetRepository, gate *SyncGate, cfg *config.Config) *ContentService {
	return &ContentService{
		Subjects: subjects,
		ExamSets: examSets,
		Gate:     gate,
		syncCfg:  cfg.Sync,
	}
}

// UpdateSyncConfig swaps in reloaded sync settings, used by the config
// watcher so cooldown and auto-sync flags take effect without a restart.
func (s *ContentService) UpdateSyncConfig(cfg config.SyncConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncCfg = cfg
}

func (s *ContentService) syncConfig() config.SyncConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncCfg
}

// DefaultBranch is the branch used when a request does not name one.
func (s *ContentService) DefaultBranch() string {
	return s.syncConfig().DefaultBranch
}

func (s *ContentService) autoSyncObjective(ctx context.Context, branch string) {
	cfg := s.syncConfig()
	if !cfg.AutoObjective {
		return
	}
	s.Gate.AutoSync(ctx, AutoSyncOptions{
		Branch:          branch,
		SyncObjective:   true,
		ReplaceExisting: cfg.ReplaceExisting,
		CooldownSeconds: cfg.CooldownSeconds,
	})
}

func (s *ContentService) autoSyncExamSets(ctx context.Context, branch string) {
	cfg := s.syncConfig()
	if !cfg.AutoExamSets {
		return
	}
	s.Gate.AutoSync(ctx, AutoSyncOptions{
		Branch:          branch,
		SyncExamSets:    true,
		ReplaceExisting: cfg.ReplaceExisting,
		CooldownSeconds: cfg.CooldownSeconds,
	})
}

func (s *ContentService) ListSubjects(ctx context.Context, branch string) ([]SubjectView, error) {
	s.autoSyncObjective(ctx, branch)

	subjects, err := s.Subjects.ListByBranch(branch)
	if err != nil {
		return nil, err
	}
	views := make([]SubjectView, 0, len(subjects))
	for _, subject := range subjects {
		parsed := ParseSubjectKey(subject.Name)
		views = append(views, SubjectView{
			ID:          subject.ID,
			Name:        subject.Name,
			SubjectName: parsed.SubjectName,
			Institution: parsed.InstitutionDisplay,
		})
	}
	return views, nil
}

func (s *ContentService) ListChapters(ctx context.Context, branch, subjectName string) ([]ChapterView, error) {
	s.autoSyncObjective(ctx, branch)

	subject, err := s.Subjects.FindByNameAndBranch(subjectName, branch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}
	chapters, err := s.Subjects.ListChapters(subject.ID)
	if err != nil {
		return nil, err
	}
	views := make([]ChapterView, 0, len(chapters))
	for _, chapter := range chapters {
		views = append(views, ChapterView{ID: chapter.ID, Name: chapter.Name, Order: chapter.Order})
	}
	return views, nil
}

func (s *ContentService) ListChapterQuestions(ctx context.Context, branch, subjectName, chapterName string, page, pageSize int) (*QuestionPage, error) {
	s.autoSyncObjective(ctx, branch)

	if page < 1 {
		page = 1
	}
	if pageSize < minPageSize {
		pageSize = minPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	subject, err := s.Subjects.FindByNameAndBranch(subjectName, branch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubjectNotFound
		}
		return nil, err
	}
	chapter, err := s.Subjects.FindChapter(subject.ID, chapterName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrChapterNotFound
		}
		return nil, err
	}

	questions, total, err := s.Subjects.ListQuestionsPage(chapter.ID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := 1
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	if questions == nil {
		questions = []model.MCQQuestion{}
	}
	return &QuestionPage{
		Count:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Results:    questions,
	}, nil
}

func (s *ContentService) ListExamSets(ctx context.Context, branch string, examType model.ExamType) ([]ExamSetView, error) {
	if examType != "" && !examType.Valid() {
		return nil, util.ErrInvalidExamType
	}
	s.autoSyncExamSets(ctx, branch)

	sets, err := s.ExamSets.ListActive(branch, examType)
	if err != nil {
		return nil, err
	}
	views := make([]ExamSetView, 0, len(sets))
	for _, set := range sets {
		count, err := s.ExamSets.CountQuestions(set.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, ExamSetView{ExamSet: set, QuestionCount: count})
	}
	return views, nil
}

// GetExamSet returns one active set with its questions in delivery order.
func (s *ContentService) GetExamSet(ctx context.Context, id uint) (*model.ExamSet, error) {
	set, err := s.ExamSets.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExamSetNotFound
		}
		return nil, err
	}
	if !set.IsActive {
		return nil, util.ErrExamSetNotFound
	}
	questions, err := s.ExamSets.ListQuestions(set.ID)
	if err != nil {
		return nil, err
	}
	set.Questions = questions
	return set, nil
}
