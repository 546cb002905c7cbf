package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lshigami/Margay/internal/model"
	"gorm.io/gorm"
)

// In-memory repository fakes. They behave like the gorm implementations for
// the paths the services exercise, including returning gorm.ErrRecordNotFound
// for missing rows.

type fakeTestRepo struct {
	tests  map[uint]*model.Test
	nextID uint
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{tests: make(map[uint]*model.Test), nextID: 1}
}

func (r *fakeTestRepo) Create(test *model.Test) error {
	test.ID = r.nextID
	r.nextID++
	for i := range test.Questions {
		test.Questions[i].ID = r.nextID
		test.Questions[i].TestID = test.ID
		r.nextID++
	}
	copied := *test
	r.tests[test.ID] = &copied
	return nil
}

func (r *fakeTestRepo) FindByID(id uint) (*model.Test, error) {
	test, ok := r.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *test
	copied.Questions = nil
	return &copied, nil
}

func (r *fakeTestRepo) FindByIDWithQuestions(id uint) (*model.Test, error) {
	test, ok := r.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *test
	return &copied, nil
}

type fakeAttemptRepo struct {
	attempts  map[uint]*model.TestAttempt
	tests     *fakeTestRepo
	questions map[uint]model.Question
	nextID    uint
}

func newFakeAttemptRepo(tests *fakeTestRepo) *fakeAttemptRepo {
	return &fakeAttemptRepo{
		attempts:  make(map[uint]*model.TestAttempt),
		tests:     tests,
		questions: make(map[uint]model.Question),
		nextID:    1,
	}
}

func (r *fakeAttemptRepo) Create(attempt *model.TestAttempt) error {
	attempt.ID = r.nextID
	r.nextID++
	copied := *attempt
	r.attempts[attempt.ID] = &copied
	return nil
}

func (r *fakeAttemptRepo) Update(attempt *model.TestAttempt) error {
	if _, ok := r.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *attempt
	r.attempts[attempt.ID] = &copied
	return nil
}

func (r *fakeAttemptRepo) FindByID(id uint) (*model.TestAttempt, error) {
	attempt, ok := r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (r *fakeAttemptRepo) FindByIDWithDetails(id uint) (*model.TestAttempt, error) {
	attempt, ok := r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	if test, ok := r.tests.tests[attempt.TestID]; ok {
		copied.Test = *test
		for i := range copied.Answers {
			for _, q := range test.Questions {
				if q.ID == copied.Answers[i].QuestionID {
					copied.Answers[i].Question = q
				}
			}
		}
	}
	return &copied, nil
}

func (r *fakeAttemptRepo) Complete(attemptID uint, answers []model.Answer, score float64, completedAt time.Time) error {
	attempt, ok := r.attempts[attemptID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range answers {
		answers[i].ID = r.nextID
		r.nextID++
	}
	attempt.Answers = append([]model.Answer(nil), answers...)
	attempt.Score = score
	attempt.CompletedAt = &completedAt
	return nil
}

type fakeDocumentRepo struct {
	docs   map[uint]*model.Document
	nextID uint
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[uint]*model.Document), nextID: 1}
}

func (r *fakeDocumentRepo) Create(doc *model.Document) error {
	doc.ID = r.nextID
	r.nextID++
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocumentRepo) Update(doc *model.Document) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocumentRepo) FindByID(id uint) (*model.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocumentRepo) FindAllByUser(userID uint) ([]model.Document, error) {
	var out []model.Document
	for _, doc := range r.docs {
		if doc.UserID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) Delete(id uint) error {
	if _, ok := r.docs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.docs, id)
	return nil
}

type fakeUserRepo struct {
	users  map[uint]*model.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*model.User), nextID: 1}
}

func (r *fakeUserRepo) Create(user *model.User) error {
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(id uint) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// fakeGemini returns canned questions and grades short answers from a fixed
// score table keyed by user answer.
type fakeGemini struct {
	questions   []GeneratedQuestion
	generateErr error
	scores      map[string]float64
	gradeErr    error
}

func (g *fakeGemini) GenerateQuestions(ctx context.Context, content, examType string, count int, difficulty string) ([]GeneratedQuestion, error) {
	if g.generateErr != nil {
		return nil, g.generateErr
	}
	return g.questions, nil
}

func (g *fakeGemini) GradeShortAnswer(ctx context.Context, question *model.Question, userAnswer string) (float64, string, error) {
	if g.gradeErr != nil {
		return 0, "", g.gradeErr
	}
	score, ok := g.scores[userAnswer]
	if !ok {
		return 0, "No credit.", nil
	}
	return score, fmt.Sprintf("Scored %.2f", score), nil
}

// fakeStorage keeps uploads in memory.
type fakeStorage struct {
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}
