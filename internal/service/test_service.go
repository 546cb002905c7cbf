package service

import (
	"context"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/lshigami/Margay/internal/dto"
	"github.com/lshigami/Margay/internal/model"
	"github.com/lshigami/Margay/internal/repository"
	"github.com/lshigami/Margay/pkg/monitoring"
	"github.com/rs/zerolog/log"
)

// TestService reads tests; TestGenerationService creates them from documents.
type TestService interface {
	GetTestDetails(testID uint) (*dto.TestResponseDTO, error)
}

type TestGenerationService interface {
	GenerateTest(ctx context.Context, userID, documentID uint, req dto.GenerateTestRequest) (*dto.TestResponseDTO, error)
}

type testService struct {
	testRepo repository.TestRepository
}

func NewTestService(testRepo repository.TestRepository) TestService {
	return &testService{testRepo: testRepo}
}

func (s *testService) GetTestDetails(testID uint) (*dto.TestResponseDTO, error) {
	test, err := s.testRepo.FindByIDWithQuestions(testID)
	if err != nil {
		log.Error().Err(err).Uint("testID", testID).Msg("Failed to get test details from repository")
		return nil, fmt.Errorf("test not found with ID %d: %w", testID, err)
	}

	return testToDTO(test)
}

type testGenerationService struct {
	docRepo  repository.DocumentRepository
	testRepo repository.TestRepository
	gemini   GeminiLLMService
}

func NewTestGenerationService(docRepo repository.DocumentRepository, testRepo repository.TestRepository, gemini GeminiLLMService) TestGenerationService {
	return &testGenerationService{docRepo: docRepo, testRepo: testRepo, gemini: gemini}
}

// GenerateTest asks the LLM for a question set over the document's extracted
// text and persists the result as a new Test. Receiving fewer questions than
// requested is a soft failure: it is logged and the smaller test is returned.
func (s *testGenerationService) GenerateTest(ctx context.Context, userID, documentID uint, req dto.GenerateTestRequest) (*dto.TestResponseDTO, error) {
	doc, err := s.docRepo.FindByID(documentID)
	if err != nil {
		return nil, fmt.Errorf("document not found with ID %d: %w", documentID, err)
	}
	if doc.UserID != userID {
		return nil, ErrDocumentForbidden
	}
	if doc.Status != model.DocumentStatusProcessed || doc.Content == "" {
		return nil, fmt.Errorf("document %d has no extracted content to generate from", documentID)
	}

	generated, err := s.gemini.GenerateQuestions(ctx, doc.Content, req.ExamType, req.QuestionCount, req.Difficulty)
	if err != nil {
		log.Error().Err(err).Uint("documentID", documentID).Msg("GenerateTest: LLM generation failed")
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	if len(generated) < req.QuestionCount {
		log.Warn().
			Uint("documentID", documentID).
			Int("requested", req.QuestionCount).
			Int("generated", len(generated)).
			Msg("GenerateTest: received fewer questions than requested, proceeding anyway")
	}
	if len(generated) > req.QuestionCount {
		generated = generated[:req.QuestionCount]
	}

	questionType := model.QuestionTypeMultipleChoice
	if req.ExamType == model.ExamTypeQA {
		questionType = model.QuestionTypeShortAnswer
	}

	questions := make([]model.Question, 0, len(generated))
	for i, g := range generated {
		questions = append(questions, model.Question{
			QuestionText:  g.Question,
			QuestionType:  questionType,
			Options:       g.Options,
			CorrectAnswer: g.CorrectAnswer,
			Order:         i,
		})
	}

	test := model.Test{
		DocumentID: doc.ID,
		Title:      fmt.Sprintf("Test for %s", doc.Title),
		ExamType:   req.ExamType,
		Difficulty: req.Difficulty,
		TimeLimit:  req.TimeLimit,
		Questions:  questions,
	}
	if err := s.testRepo.Create(&test); err != nil {
		log.Error().Err(err).Msg("GenerateTest: failed to create test in database")
		return nil, fmt.Errorf("database error creating test: %w", err)
	}
	monitoring.TestsGenerated.WithLabelValues(req.ExamType).Inc()

	created, err := s.testRepo.FindByIDWithQuestions(test.ID)
	if err != nil {
		log.Error().Err(err).Uint("testID", test.ID).Msg("GenerateTest: failed to reload created test, returning in-memory copy")
		return testToDTO(&test)
	}
	return testToDTO(created)
}

func testToDTO(test *model.Test) (*dto.TestResponseDTO, error) {
	var resp dto.TestResponseDTO
	if err := copier.Copy(&resp, test); err != nil {
		log.Error().Err(err).Msg("Failed to copy Test model to TestResponseDTO")
		return nil, fmt.Errorf("error preparing test response: %w", err)
	}
	if resp.Questions == nil {
		resp.Questions = []dto.QuestionResponseDTO{}
	}
	return &resp, nil
}
