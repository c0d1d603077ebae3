package model

import "github.com/shopspring/decimal"

type ExamType string

const (
	ExamTypeMCQ        ExamType = "mcq"
	ExamTypeSubjective ExamType = "subjective"
)

func (t ExamType) Valid() bool {
	return t == ExamTypeMCQ || t == ExamTypeSubjective
}

// ExamSet is a gradeable collection of questions delivered as one unit.
// Sets created by the reconciliation engine carry ManagedBySync=true and the
// remote path they were last imported from; manually authored sets stay
// outside the engine's lifecycle.
type ExamSet struct {
	BaseModel
	Name            string          `gorm:"size:200;not null;uniqueIndex:idx_exam_set_identity" json:"name"`
	Branch          string          `gorm:"size:200;not null;uniqueIndex:idx_exam_set_identity" json:"branch"`
	ExamType        ExamType        `gorm:"size:20;not null;uniqueIndex:idx_exam_set_identity" json:"examType"`
	Description     string          `gorm:"type:text" json:"description"`
	Instructions    string          `gorm:"type:text" json:"instructions"`
	IsFree          bool            `gorm:"default:true" json:"isFree"`
	Fee             decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"fee"`
	DurationSeconds int             `gorm:"default:1800" json:"durationSeconds"`
	GraceSeconds    int             `gorm:"default:60" json:"graceSeconds"`
	NegativeMarking decimal.Decimal `gorm:"type:decimal(4,2);default:0.25" json:"negativeMarking"`
	IsActive        bool            `gorm:"default:true;index" json:"isActive"`
	ManagedBySync   bool            `gorm:"default:false;index" json:"managedBySync"`
	SourceFilePath  string          `gorm:"size:500;index" json:"sourceFilePath"`

	Questions []ExamQuestion `gorm:"constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (ExamSet) TableName() string {
	return "exam_sets"
}

type ExamQuestion struct {
	BaseModel
	ExamSetID        uint   `gorm:"index;not null" json:"examSetId"`
	Order            int    `gorm:"column:order_index;default:1" json:"order"`
	QuestionHeader   string `gorm:"size:255" json:"questionHeader"`
	QuestionText     string `gorm:"type:text;not null" json:"questionText"`
	QuestionImageURL string `gorm:"size:500" json:"questionImageUrl"`
	OptionA          string `gorm:"size:500" json:"optionA"`
	OptionB          string `gorm:"size:500" json:"optionB"`
	OptionC          string `gorm:"size:500" json:"optionC"`
	OptionD          string `gorm:"size:500" json:"optionD"`
	// Empty for subjective questions.
	CorrectOption string `gorm:"size:1" json:"correctOption"`
	Explanation   string `gorm:"type:text" json:"explanation"`
	Marks         int    `gorm:"default:1" json:"marks"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}
