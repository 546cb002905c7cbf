package dto

import "time"

// QuestionResponseDTO is used for displaying question details to users.
// CorrectAnswer is present in the payload so results can show ground truth;
// clients must not display it before grading.
type QuestionResponseDTO struct {
	ID            uint     `json:"id"`
	QuestionText  string   `json:"question_text"`
	QuestionType  string   `json:"question_type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Order         int      `json:"order"`
}

// TestResponseDTO is used for displaying full test details to users.
type TestResponseDTO struct {
	ID         uint                  `json:"id"`
	DocumentID uint                  `json:"document"`
	Title      string                `json:"title"`
	ExamType   string                `json:"exam_type"`
	Difficulty string                `json:"difficulty"`
	TimeLimit  int                   `json:"time_limit"`
	Questions  []QuestionResponseDTO `json:"questions"`
	CreatedAt  time.Time             `json:"created_at"`
}

// --- DTOs for Test Attempts ---

// AttemptCreateRequest starts a fresh attempt for a test.
type AttemptCreateRequest struct {
	Test uint `json:"test" binding:"required"`
}

// SubmittedAnswerDTO is a single {questionId, answer} pair in a submission.
type SubmittedAnswerDTO struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

// AttemptSubmitRequest is the full answer payload for an attempt. Unanswered
// questions are simply absent from the list; an empty list is a valid
// submission (the timer ran out before anything was answered).
type AttemptSubmitRequest struct {
	Answers []SubmittedAnswerDTO `json:"answers" binding:"dive"`
}

// AnswerResponseDTO is one scored answer within an attempt's results.
// Score and Feedback are set only for AI-graded short_answer questions.
type AnswerResponseDTO struct {
	ID            uint     `json:"id"`
	QuestionID    uint     `json:"question"`
	QuestionText  string   `json:"question_text"`
	UserAnswer    string   `json:"user_answer"`
	IsCorrect     bool     `json:"is_correct"`
	CorrectAnswer string   `json:"correct_answer"`
	Score         *float64 `json:"score,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
}

// AttemptDetailDTO is the full state of an attempt, scored or not.
type AttemptDetailDTO struct {
	ID          uint                `json:"id"`
	TestID      uint                `json:"test"`
	ExamType    string              `json:"exam_type"`
	Score       float64             `json:"score"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at"`
	Answers     []AnswerResponseDTO `json:"answers"`
}
