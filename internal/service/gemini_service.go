package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/Margay/config"
	"github.com/lshigami/Margay/internal/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// GeneratedQuestion is one question parsed out of the model's JSON response.
type GeneratedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// GeminiLLMService wraps the two LLM calls the platform makes: generating a
// question set from document text, and grading a free-form short answer.
type GeminiLLMService interface {
	GenerateQuestions(ctx context.Context, content, examType string, count int, difficulty string) ([]GeneratedQuestion, error)
	GradeShortAnswer(ctx context.Context, question *model.Question, userAnswer string) (score float64, feedback string, err error)
}

type geminiLLMService struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

func NewGeminiLLMService(cfg *config.Config) (GeminiLLMService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. GeminiLLMService will be non-functional.")
		return &geminiLLMService{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-1.5-flash")
	return &geminiLLMService{client: model, cfg: cfg}, nil
}

// stripCodeFences removes the ```json ... ``` wrapper Gemini tends to put
// around JSON payloads, plus stray outer quotes.
func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") && len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	if strings.HasPrefix(raw, "```json") && strings.HasSuffix(raw, "```") {
		raw = strings.TrimSpace(raw[len("```json") : len(raw)-len("```")])
	} else if strings.HasPrefix(raw, "```") && strings.HasSuffix(raw, "```") && len(raw) >= 6 {
		raw = strings.TrimSpace(raw[len("```") : len(raw)-len("```")])
	}
	return raw
}

// parseGeneratedQuestions decodes the model's JSON array, dropping items that
// are missing essential fields. For multiple choice, a correct answer that is
// not among the options is kept but logged.
func parseGeneratedQuestions(raw, examType string) ([]GeneratedQuestion, error) {
	cleaned := stripCodeFences(raw)

	var items []GeneratedQuestion
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("failed to parse question JSON: %w", err)
	}

	var parsed []GeneratedQuestion
	for _, item := range items {
		if item.Question == "" || item.CorrectAnswer == "" {
			log.Warn().Interface("item", item).Msg("Skipping malformed question from Gemini response")
			continue
		}
		if examType == model.ExamTypeMCQ {
			if len(item.Options) == 0 {
				log.Warn().Str("question", item.Question).Msg("Skipping multiple choice question without options")
				continue
			}
			found := false
			for _, opt := range item.Options {
				if opt == item.CorrectAnswer {
					found = true
					break
				}
			}
			if !found {
				log.Warn().Str("question", item.Question).Str("correctAnswer", item.CorrectAnswer).Msg("Correct answer not found among options")
			}
		} else {
			// Short answer questions carry no options regardless of what the
			// model returned.
			item.Options = nil
		}
		parsed = append(parsed, item)
	}
	return parsed, nil
}

func buildGenerationPrompt(content, examType string, count int, difficulty string) string {
	var b strings.Builder
	b.WriteString("You are an expert educator creating test questions from study material.\n")

	if examType == model.ExamTypeQA {
		fmt.Fprintf(&b, "Generate %d short-answer questions of %s difficulty based on the following text.\n", count, difficulty)
		b.WriteString("For each question, provide the question text and a model correct answer.\n")
		b.WriteString("Format the output strictly as a JSON array of objects, like this:\n")
		b.WriteString(`[{"question": "Question 1 text", "correct_answer": "Expected answer"}]`)
	} else {
		fmt.Fprintf(&b, "Generate %d multiple choice questions of %s difficulty based on the following text.\n", count, difficulty)
		b.WriteString("For each question, provide the question text, a list of exactly 4 options, and the correct answer.\n")
		b.WriteString("The correct answer must be one of the options, verbatim.\n")
		b.WriteString("Format the output strictly as a JSON array of objects, like this:\n")
		b.WriteString(`[{"question": "Question 1 text", "options": ["Option A", "Option B", "Option C", "Option D"], "correct_answer": "Option B"}]`)
	}

	b.WriteString("\n\nText:\n")
	b.WriteString(content)
	return b.String()
}

func (s *geminiLLMService) GenerateQuestions(ctx context.Context, content, examType string, count int, difficulty string) ([]GeneratedQuestion, error) {
	if s.client == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}

	prompt := buildGenerationPrompt(content, examType, count, difficulty)
	resp, err := s.client.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Str("examType", examType).Msg("Gemini API error during question generation")
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	raw := collectResponseText(resp)
	if raw == "" {
		return nil, fmt.Errorf("gemini returned no text content")
	}

	questions, err := parseGeneratedQuestions(raw, examType)
	if err != nil {
		log.Warn().Err(err).Str("rawResponse", raw).Msg("Failed to parse questions from Gemini response")
		return nil, err
	}
	return questions, nil
}

// parseScoreAndFeedback splits a "Score: ...\nFeedback: ..." response.
func parseScoreAndFeedback(rawResponse string) (scoreStr string, feedbackStr string, err error) {
	scorePrefix := "Score:"
	feedbackPrefix := "Feedback:"

	scoreIndex := strings.Index(rawResponse, scorePrefix)
	feedbackIndex := strings.Index(rawResponse, feedbackPrefix)

	if scoreIndex == -1 {
		return "", rawResponse, fmt.Errorf("response does not contain 'Score:' prefix")
	}

	endOfScoreLine := strings.Index(rawResponse[scoreIndex:], "\n")
	if endOfScoreLine == -1 {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix):])
	} else {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix) : scoreIndex+endOfScoreLine])
	}

	if feedbackIndex != -1 && feedbackIndex > scoreIndex {
		feedbackStr = strings.TrimSpace(rawResponse[feedbackIndex+len(feedbackPrefix):])
	} else if endOfScoreLine != -1 && len(rawResponse) > scoreIndex+endOfScoreLine+1 {
		feedbackStr = strings.TrimSpace(rawResponse[scoreIndex+endOfScoreLine+1:])
	} else {
		feedbackStr = "Feedback not found in the expected format after the score."
	}

	// The score line should only hold the number.
	parts := strings.Fields(scoreStr)
	if len(parts) > 0 {
		scoreStr = parts[0]
	}

	return scoreStr, feedbackStr, nil
}

func (s *geminiLLMService) GradeShortAnswer(ctx context.Context, question *model.Question, userAnswer string) (float64, string, error) {
	if s.client == nil {
		return 0.0, "AI service is unavailable (client not initialized).", fmt.Errorf("gemini client not initialized")
	}

	var b strings.Builder
	b.WriteString("You are an expert educator evaluating a student's short answer.\n\n")
	b.WriteString("Question:\n---\n")
	b.WriteString(question.QuestionText)
	b.WriteString("\n---\n\nExpected Answer:\n---\n")
	b.WriteString(question.CorrectAnswer)
	b.WriteString("\n---\n\nStudent's Answer:\n---\n")
	b.WriteString(userAnswer)
	b.WriteString("\n---\n\n")
	b.WriteString(`Please provide your evaluation in two distinct parts:
1. Score: A numerical score from 0.0 to 1.0 (e.g., 0.5, 1.0) reflecting how well the student's answer matches the expected answer in substance.
2. Feedback: Brief, constructive feedback explaining why the answer is correct or incorrect, with a suggestion for improvement when it is wrong.

Format your response strictly as:
Score: [Your Numerical Score Here]
Feedback:
[Your Feedback Here]
`)

	resp, err := s.client.GenerateContent(ctx, genai.Text(b.String()))
	if err != nil {
		log.Error().Err(err).Uint("questionID", question.ID).Msg("Gemini API error during answer grading")
		return 0.0, fmt.Sprintf("Gemini API error: %s. Please try again.", err.Error()), err
	}

	raw := collectResponseText(resp)
	if raw == "" {
		return 0.0, "Gemini returned an empty or malformed response.", fmt.Errorf("gemini returned no content")
	}

	scoreStr, feedbackStr, parseErr := parseScoreAndFeedback(raw)
	if parseErr != nil {
		log.Warn().Err(parseErr).Str("rawResponse", raw).Msg("Failed to parse score and feedback from Gemini response")
		return 0.0, fmt.Sprintf("Could not parse AI response. Raw: %s", raw), parseErr
	}

	parsedScore, scoreErr := strconv.ParseFloat(strings.TrimSpace(scoreStr), 64)
	if scoreErr != nil {
		log.Warn().Err(scoreErr).Str("scoreStr", scoreStr).Msg("Failed to parse score string to float")
		return 0.0, feedbackStr, fmt.Errorf("could not parse score value (%q) from AI response", scoreStr)
	}

	// Clamp to the grading range.
	if parsedScore > 1.0 {
		parsedScore = 1.0
	}
	if parsedScore < 0 {
		parsedScore = 0
	}

	return parsedScore, strings.TrimSpace(feedbackStr), nil
}

func collectResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text += string(txt)
		}
	}
	return text
}
