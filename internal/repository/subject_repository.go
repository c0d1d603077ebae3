package repository

import (
	"bridge4er_backend/internal/model"

	"gorm.io/gorm"
)

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

func (r *SubjectRepository) ListByBranch(branch string) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.Where("branch = ?", branch).Order("name ASC").Find(&subjects).Error
	return subjects, err
}

func (r *SubjectRepository) FindByNameAndBranch(name, branch string) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.Where("name = ? AND branch = ?", name, branch).First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *SubjectRepository) ListChapters(subjectID uint) ([]model.Chapter, error) {
	var chapters []model.Chapter
	err := r.DB.Where("subject_id = ?", subjectID).Order("order_index ASC, name ASC").Find(&chapters).Error
	return chapters, err
}

func (r *SubjectRepository) FindChapter(subjectID uint, name string) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.Where("subject_id = ? AND name = ?", subjectID, name).First(&chapter).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (r *SubjectRepository) CountQuestions(chapterID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.MCQQuestion{}).Where("chapter_id = ?", chapterID).Count(&count).Error
	return count, err
}

// ListQuestionsPage returns one page of a chapter's questions plus the total
// count, ordered by insertion so imported file order is preserved.
func (r *SubjectRepository) ListQuestionsPage(chapterID uint, offset, limit int) ([]model.MCQQuestion, int64, error) {
	total, err := r.CountQuestions(chapterID)
	if err != nil {
		return nil, 0, err
	}
	var questions []model.MCQQuestion
	err = r.DB.Where("chapter_id = ?", chapterID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&questions).Error
	return questions, total, err
}
