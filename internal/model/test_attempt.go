package model

import (
	"time"

	"gorm.io/gorm"
)

// TestAttempt is one user's timed pass over a Test. It is created empty when
// the user starts the test and becomes terminal once CompletedAt is set.
type TestAttempt struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	TestID      uint           `json:"test" gorm:"not null;index"`
	Test        Test           `json:"-" gorm:"foreignKey:TestID"`
	UserID      uint           `json:"user_id" gorm:"index"`
	Score       float64        `json:"score" gorm:"default:0"` // percentage 0-100
	StartedAt   time.Time      `json:"started_at" gorm:"autoCreateTime"`
	CompletedAt *time.Time     `json:"completed_at"`
	Answers     []Answer       `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
