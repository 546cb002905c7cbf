package model

import (
	"time"

	"gorm.io/gorm"
)

// Answer records a user's response to one question within an attempt.
// Score and Feedback are populated only for AI-graded short_answer questions;
// multiple_choice answers carry only the IsCorrect boolean.
type Answer struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	AttemptID  uint           `json:"attempt_id" gorm:"not null;index"`
	QuestionID uint           `json:"question" gorm:"not null;index"`
	Question   Question       `json:"-" gorm:"foreignKey:QuestionID"`
	UserAnswer string         `json:"user_answer" gorm:"type:text;not null"`
	IsCorrect  bool           `json:"is_correct" gorm:"default:false"`
	Score      *float64       `json:"score,omitempty"` // 0.0-1.0, short_answer only
	Feedback   string         `json:"feedback,omitempty" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
