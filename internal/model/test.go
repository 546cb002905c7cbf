package model

import (
	"time"

	"gorm.io/gorm"
)

// Exam types. "mcq" tests carry only multiple_choice questions, "qa" tests
// only short_answer ones.
const (
	ExamTypeMCQ = "mcq"
	ExamTypeQA  = "qa"
)

type Test struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	DocumentID uint           `json:"document" gorm:"not null;index"`
	Title      string         `json:"title" gorm:"not null"`
	ExamType   string         `json:"exam_type" gorm:"not null;default:'mcq'"`
	Difficulty string         `json:"difficulty" gorm:"default:'medium'"` // "easy", "medium", "hard"
	TimeLimit  int            `json:"time_limit" gorm:"default:30"`       // minutes
	Questions  []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE;"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
