package model

// Subject groups question-bank chapters under a branch. Name may carry an
// institution prefix encoded with the " :: " separator (see service.SubjectKey).
type Subject struct {
	BaseModel
	Name   string `gorm:"size:200;not null;uniqueIndex:idx_subject_name_branch" json:"name"`
	Branch string `gorm:"size:200;not null;uniqueIndex:idx_subject_name_branch" json:"branch"`

	Chapters []Chapter `gorm:"constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
}

func (Subject) TableName() string {
	return "subjects"
}

type Chapter struct {
	BaseModel
	SubjectID uint   `gorm:"index;not null;uniqueIndex:idx_chapter_subject_name" json:"subjectId"`
	Name      string `gorm:"size:200;not null;uniqueIndex:idx_chapter_subject_name" json:"name"`
	Order     int    `gorm:"column:order_index;default:0" json:"order"`

	Questions []MCQQuestion `gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

type MCQQuestion struct {
	BaseModel
	ChapterID        uint   `gorm:"index;not null" json:"chapterId"`
	QuestionHeader   string `gorm:"size:255" json:"questionHeader"`
	QuestionText     string `gorm:"type:text;not null" json:"questionText"`
	QuestionImageURL string `gorm:"size:500" json:"questionImageUrl"`
	OptionA          string `gorm:"size:500" json:"optionA"`
	OptionB          string `gorm:"size:500" json:"optionB"`
	OptionC          string `gorm:"size:500" json:"optionC"`
	OptionD          string `gorm:"size:500" json:"optionD"`
	CorrectOption    string `gorm:"size:1" json:"correctOption"`
	Explanation      string `gorm:"type:text" json:"explanation"`
}

func (MCQQuestion) TableName() string {
	return "mcq_questions"
}
