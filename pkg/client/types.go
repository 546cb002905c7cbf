package client

import (
	"encoding/json"
	"fmt"
	"time"
)

// User identifies the authenticated account.
type User struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Session is the persisted authentication state.
type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// Document is one uploaded study document as the server reports it.
type Document struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	FileType   string    `json:"file_type"`
	UploadDate time.Time `json:"upload_date"`
	Status     string    `json:"status"`
}

// GenerateTestConfig configures AI test generation for a document.
type GenerateTestConfig struct {
	ExamType      string `json:"exam_type"`
	QuestionCount int    `json:"question_count"`
	Difficulty    string `json:"difficulty"`
	TimeLimit     int    `json:"time_limit"`
}

// Validate rejects configurations the server would refuse, before any
// network call is made.
func (c GenerateTestConfig) Validate() error {
	switch c.ExamType {
	case "mcq", "qa":
	default:
		return fmt.Errorf("exam type must be mcq or qa, got %q", c.ExamType)
	}
	if c.QuestionCount < 1 || c.QuestionCount > 50 {
		return fmt.Errorf("question count must be between 1 and 50, got %d", c.QuestionCount)
	}
	switch c.Difficulty {
	case "easy", "medium", "hard":
	default:
		return fmt.Errorf("difficulty must be easy, medium or hard, got %q", c.Difficulty)
	}
	if c.TimeLimit < 5 || c.TimeLimit > 180 {
		return fmt.Errorf("time limit must be between 5 and 180 minutes, got %d", c.TimeLimit)
	}
	return nil
}

// QuestionKind distinguishes the two question shapes a test can carry.
type QuestionKind int

const (
	MultipleChoice QuestionKind = iota
	ShortAnswer
)

// Question is one question in a test. Options is populated only for
// MultipleChoice; callers switch on Kind and must treat any other value
// as a decoding bug.
type Question struct {
	ID      uint
	Text    string
	Kind    QuestionKind
	Options []string
	Order   int
}

type questionJSON struct {
	ID           uint     `json:"id"`
	QuestionText string   `json:"question_text"`
	QuestionType string   `json:"question_type"`
	Options      []string `json:"options"`
	Order        int      `json:"order"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.ID = raw.ID
	q.Text = raw.QuestionText
	q.Order = raw.Order
	switch raw.QuestionType {
	case "multiple_choice":
		q.Kind = MultipleChoice
		q.Options = raw.Options
	case "short_answer":
		q.Kind = ShortAnswer
		q.Options = nil
	default:
		return fmt.Errorf("unknown question type %q", raw.QuestionType)
	}
	return nil
}

// Test is a generated test with its questions in authored order.
type Test struct {
	ID         uint       `json:"id"`
	DocumentID uint       `json:"document"`
	Title      string     `json:"title"`
	ExamType   string     `json:"exam_type"`
	Difficulty string     `json:"difficulty"`
	TimeLimit  int        `json:"time_limit"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AnswerResult is one graded answer inside a completed attempt.
type AnswerResult struct {
	ID            uint     `json:"id"`
	QuestionID    uint     `json:"question"`
	QuestionText  string   `json:"question_text"`
	UserAnswer    string   `json:"user_answer"`
	IsCorrect     bool     `json:"is_correct"`
	CorrectAnswer string   `json:"correct_answer"`
	Score         *float64 `json:"score,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
}

// Attempt is the server's view of a test attempt, graded or not.
type Attempt struct {
	ID          uint           `json:"id"`
	TestID      uint           `json:"test"`
	ExamType    string         `json:"exam_type"`
	Score       float64        `json:"score"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Answers     []AnswerResult `json:"answers"`
}

// SubmittedAnswer is one {questionId, answer} pair in a submission payload.
type SubmittedAnswer struct {
	QuestionID uint   `json:"questionId"`
	Answer     string `json:"answer"`
}
