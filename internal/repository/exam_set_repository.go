package repository

import (
	"bridge4er_backend/internal/model"

	"gorm.io/gorm"
)

type ExamSetRepository struct {
	DB *gorm.DB
}

func NewExamSetRepository(db *gorm.DB) *ExamSetRepository {
	return &ExamSetRepository{DB: db}
}

// ListActive returns the active sets for a branch, optionally filtered by exam
// type, newest first.
func (r *ExamSetRepository) ListActive(branch string, examType model.ExamType) ([]model.ExamSet, error) {
	query := r.DB.Where("branch = ? AND is_active = ?", branch, true)
	if examType != "" {
		query = query.Where("exam_type = ?", examType)
	}
	var sets []model.ExamSet
	err := query.Order("id DESC").Find(&sets).Error
	return sets, err
}

func (r *ExamSetRepository) FindByID(id uint) (*model.ExamSet, error) {
	var set model.ExamSet
	err := r.DB.First(&set, id).Error
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (r *ExamSetRepository) ListQuestions(examSetID uint) ([]model.ExamQuestion, error) {
	var questions []model.ExamQuestion
	err := r.DB.Where("exam_set_id = ?", examSetID).
		Order("order_index ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *ExamSetRepository) CountQuestions(examSetID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ExamQuestion{}).Where("exam_set_id = ?", examSetID).Count(&count).Error
	return count, err
}
