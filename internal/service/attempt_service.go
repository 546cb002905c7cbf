package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lshigami/Margay/internal/dto"
	"github.com/lshigami/Margay/internal/model"
	"github.com/lshigami/Margay/internal/repository"
	"github.com/lshigami/Margay/pkg/monitoring"
	"github.com/rs/zerolog/log"
)

var (
	ErrAttemptForbidden = fmt.Errorf("attempt does not belong to the requesting user")
	ErrAttemptCompleted = fmt.Errorf("attempt has already been submitted")
)

// A short answer counts as correct when the AI score reaches this threshold.
const shortAnswerCorrectThreshold = 0.5

// AttemptService drives the attempt lifecycle: create empty, submit once,
// read back scored results.
type AttemptService interface {
	CreateAttempt(userID, testID uint) (*dto.AttemptDetailDTO, error)
	SubmitAttempt(ctx context.Context, userID, attemptID uint, req dto.AttemptSubmitRequest) (*dto.AttemptDetailDTO, error)
	GetAttemptDetails(userID, attemptID uint) (*dto.AttemptDetailDTO, error)
}

type attemptService struct {
	testRepo    repository.TestRepository
	attemptRepo repository.TestAttemptRepository
	gemini      GeminiLLMService
}

func NewAttemptService(
	testRepo repository.TestRepository,
	attemptRepo repository.TestAttemptRepository,
	gemini GeminiLLMService,
) AttemptService {
	return &attemptService{
		testRepo:    testRepo,
		attemptRepo: attemptRepo,
		gemini:      gemini,
	}
}

func (s *attemptService) CreateAttempt(userID, testID uint) (*dto.AttemptDetailDTO, error) {
	test, err := s.testRepo.FindByID(testID)
	if err != nil {
		log.Warn().Err(err).Uint("testID", testID).Msg("CreateAttempt: test not found")
		return nil, fmt.Errorf("test not found with ID %d: %w", testID, err)
	}

	attempt := model.TestAttempt{
		TestID:    test.ID,
		UserID:    userID,
		StartedAt: time.Now(),
	}
	if err := s.attemptRepo.Create(&attempt); err != nil {
		log.Error().Err(err).Uint("testID", testID).Msg("CreateAttempt: failed to create attempt record")
		return nil, fmt.Errorf("database error creating attempt: %w", err)
	}

	log.Info().Uint("attemptID", attempt.ID).Uint("testID", testID).Uint("userID", userID).Msg("Attempt created")
	return attemptToDTO(&attempt, test.ExamType, nil), nil
}

// gradedAnswer carries one answer's grading result out of a worker goroutine.
type gradedAnswer struct {
	index  int
	answer model.Answer
}

// SubmitAttempt grades the submitted answers and finalizes the attempt.
// Multiple choice answers are graded by exact match against the question's
// correct answer; short answers fan out to the LLM, one goroutine per answer.
// Answers for question ids not in the attempt's test are skipped; unanswered
// questions are simply absent (they still count in the score denominator).
func (s *attemptService) SubmitAttempt(ctx context.Context, userID, attemptID uint, req dto.AttemptSubmitRequest) (*dto.AttemptDetailDTO, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt not found with ID %d: %w", attemptID, err)
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptForbidden
	}
	if attempt.CompletedAt != nil {
		return nil, ErrAttemptCompleted
	}

	test, err := s.testRepo.FindByIDWithQuestions(attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("test not found with ID %d: %w", attempt.TestID, err)
	}
	if len(test.Questions) == 0 {
		return nil, fmt.Errorf("test %d has no questions, submission is not possible", test.ID)
	}

	questionMap := make(map[uint]model.Question, len(test.Questions))
	for _, q := range test.Questions {
		questionMap[q.ID] = q
	}

	var pending []model.Answer
	for _, submitted := range req.Answers {
		question, exists := questionMap[submitted.QuestionID]
		if !exists {
			log.Warn().Uint("questionID", submitted.QuestionID).Uint("testID", test.ID).Msg("SubmitAttempt: answer for a question not part of this test, skipping")
			continue
		}
		pending = append(pending, model.Answer{
			AttemptID:  attempt.ID,
			QuestionID: question.ID,
			UserAnswer: submitted.Answer,
		})
	}

	// Grade in parallel; MCQ grading is local, short answers call the LLM.
	gradeStart := time.Now()
	var wg sync.WaitGroup
	results := make(chan gradedAnswer, len(pending))
	for i := range pending {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ans := pending[idx]
			question := questionMap[ans.QuestionID]
			results <- gradedAnswer{index: idx, answer: s.gradeAnswer(ctx, &question, ans)}
		}(i)
	}
	wg.Wait()
	close(results)
	monitoring.GradingDuration.Observe(time.Since(gradeStart).Seconds())

	graded := make([]model.Answer, len(pending))
	for res := range results {
		graded[res.index] = res.answer
	}

	score := computeScore(test.ExamType, graded, len(test.Questions))

	if err := s.attemptRepo.Complete(attempt.ID, graded, score, time.Now()); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("SubmitAttempt: failed to persist scored attempt")
		return nil, err
	}

	monitoring.AttemptsSubmitted.WithLabelValues(test.ExamType).Inc()
	log.Info().Uint("attemptID", attempt.ID).Float64("score", score).Int("answers", len(graded)).Msg("Attempt submitted and scored")
	return s.GetAttemptDetails(userID, attempt.ID)
}

func (s *attemptService) gradeAnswer(ctx context.Context, question *model.Question, ans model.Answer) model.Answer {
	switch question.QuestionType {
	case model.QuestionTypeShortAnswer:
		score, feedback, err := s.gemini.GradeShortAnswer(ctx, question, ans.UserAnswer)
		ans.Feedback = feedback
		if err != nil {
			log.Error().Err(err).Uint("questionID", question.ID).Msg("SubmitAttempt: AI grading failed for answer")
			ans.Score = nil
			ans.IsCorrect = false
			return ans
		}
		ans.Score = &score
		ans.IsCorrect = score >= shortAnswerCorrectThreshold
	default:
		ans.IsCorrect = ans.UserAnswer == question.CorrectAnswer
	}
	return ans
}

// computeScore turns graded answers into the attempt's percentage. MCQ tests
// count correct answers; AI-graded tests sum the fractional scores. The
// denominator is always the test's full question count.
func computeScore(examType string, answers []model.Answer, totalQuestions int) float64 {
	if totalQuestions == 0 {
		return 0
	}
	if examType == model.ExamTypeQA {
		sum := 0.0
		for _, a := range answers {
			if a.Score != nil {
				sum += *a.Score
			}
		}
		return sum / float64(totalQuestions) * 100
	}
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(totalQuestions) * 100
}

func (s *attemptService) GetAttemptDetails(userID, attemptID uint) (*dto.AttemptDetailDTO, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("GetAttemptDetails: attempt not found")
		return nil, fmt.Errorf("attempt not found with ID %d: %w", attemptID, err)
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptForbidden
	}

	// Present answers in question order.
	sort.SliceStable(attempt.Answers, func(i, j int) bool {
		return attempt.Answers[i].Question.Order < attempt.Answers[j].Question.Order
	})

	return attemptToDTO(attempt, attempt.Test.ExamType, attempt.Answers), nil
}

func attemptToDTO(attempt *model.TestAttempt, examType string, answers []model.Answer) *dto.AttemptDetailDTO {
	resp := dto.AttemptDetailDTO{
		ID:          attempt.ID,
		TestID:      attempt.TestID,
		ExamType:    examType,
		Score:       attempt.Score,
		StartedAt:   attempt.StartedAt,
		CompletedAt: attempt.CompletedAt,
		Answers:     make([]dto.AnswerResponseDTO, 0, len(answers)),
	}
	for _, a := range answers {
		resp.Answers = append(resp.Answers, dto.AnswerResponseDTO{
			ID:            a.ID,
			QuestionID:    a.QuestionID,
			QuestionText:  a.Question.QuestionText,
			UserAnswer:    a.UserAnswer,
			IsCorrect:     a.IsCorrect,
			CorrectAnswer: a.Question.CorrectAnswer,
			Score:         a.Score,
			Feedback:      a.Feedback,
		})
	}
	return &resp
}
