package dto

import "time"

type DocumentResponse struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	FileType   string    `json:"file_type"`
	UploadDate time.Time `json:"upload_date"`
	Status     string    `json:"status"`
}

// GenerateTestRequest is the configuration posted to
// /documents/{id}/generate_test/.
type GenerateTestRequest struct {
	ExamType      string `json:"exam_type" binding:"required,oneof=mcq qa"`
	QuestionCount int    `json:"question_count" binding:"required,min=1,max=50"`
	Difficulty    string `json:"difficulty" binding:"required,oneof=easy medium hard"`
	TimeLimit     int    `json:"time_limit" binding:"required,min=5,max=180"` // minutes
}
