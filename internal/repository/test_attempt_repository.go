package repository

import (
	"fmt"
	"time"

	"github.com/lshigami/Margay/internal/model"
	"gorm.io/gorm"
)

type TestAttemptRepository interface {
	Create(attempt *model.TestAttempt) error
	Update(attempt *model.TestAttempt) error
	FindByID(id uint) (*model.TestAttempt, error)
	FindByIDWithDetails(id uint) (*model.TestAttempt, error)
	// Complete atomically persists the graded answers and finalizes the
	// attempt with its score and completion time.
	Complete(attemptID uint, answers []model.Answer, score float64, completedAt time.Time) error
}

type testAttemptRepository struct {
	db *gorm.DB
}

func NewTestAttemptRepository(db *gorm.DB) TestAttemptRepository {
	return &testAttemptRepository{db: db}
}

func (r *testAttemptRepository) Create(attempt *model.TestAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *testAttemptRepository) Update(attempt *model.TestAttempt) error {
	return r.db.Save(attempt).Error
}

func (r *testAttemptRepository) FindByID(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.First(&attempt, id).Error
	return &attempt, err
}

func (r *testAttemptRepository) Complete(attemptID uint, answers []model.Answer, score float64, completedAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(answers) > 0 {
			if err := tx.Create(&answers).Error; err != nil {
				return fmt.Errorf("failed to create answer records: %w", err)
			}
		}
		return tx.Model(&model.TestAttempt{}).
			Where("id = ?", attemptID).
			Updates(map[string]interface{}{"score": score, "completed_at": completedAt}).Error
	})
}

func (r *testAttemptRepository) FindByIDWithDetails(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.
		Preload("Test").
		Preload("Answers.Question").
		First(&attempt, id).Error
	return &attempt, err
}
