package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *SessionStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewSessionStore(t.TempDir())
	require.NoError(t, err)
	return New(server.URL, store), store
}

func TestSessionStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSessionStore(dir)
	require.NoError(t, err)
	assert.Nil(t, store.Current())

	sess := Session{Token: "abc", RefreshToken: "def", User: &User{ID: 1, Email: "a@b.com"}}
	require.NoError(t, store.Set(sess))

	// A fresh store over the same directory sees the persisted session.
	reloaded, err := NewSessionStore(dir)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Current())
	assert.Equal(t, "abc", reloaded.Token())
	assert.Equal(t, "a@b.com", reloaded.Current().User.Email)

	require.NoError(t, reloaded.Clear())
	assert.Nil(t, reloaded.Current())
	again, err := NewSessionStore(dir)
	require.NoError(t, err)
	assert.Nil(t, again.Current())
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	require.NoError(t, store.Set(Session{Token: "tok-123"}))

	_, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestUnauthorizedClearsSessionAndFiresHookOnce(t *testing.T) {
	requests := 0
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	require.NoError(t, store.Set(Session{Token: "stale"}))

	hookCalls := 0
	c.OnUnauthorized = func() { hookCalls++ }

	_, err := c.ListDocuments(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, requests, "a rejected request is never retried")
	assert.Equal(t, 1, hookCalls)
	assert.Empty(t, store.Token(), "the stale session is gone")
	assert.Nil(t, store.Current())
}

func TestServerErrorMessageExtracted(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "Invalid request body", "details": ["exam_type is required"]}`))
	}))

	_, err := c.GetDocument(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid request body")
	assert.Contains(t, err.Error(), "exam_type is required")
}

func TestServerErrorFallbackMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway</html>"))
	}))

	_, err := c.GetDocument(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed with status 502")
}

func TestLoginPersistsSession(t *testing.T) {
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access": "acc", "refresh": "ref", "user": {"id": 5, "email": "a@b.com", "full_name": "A B"}}`))
	}))

	user, err := c.Login(context.Background(), "a@b.com", "password")
	require.NoError(t, err)
	assert.Equal(t, uint(5), user.ID)

	sess := store.Current()
	require.NotNil(t, sess)
	assert.Equal(t, "acc", sess.Token)
	assert.Equal(t, "ref", sess.RefreshToken)
}

func TestLogoutRemovesSessionFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSessionStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(Session{Token: "tok"}))

	c := New("http://unused.invalid", store)
	require.NoError(t, c.Logout())

	_, statErr := os.Stat(dir + "/" + sessionFileName)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadDocumentRejectsEmptyInputBeforeNetwork(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))

	_, err := c.UploadDocument(context.Background(), "", "title", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = c.UploadDocument(context.Background(), "notes.txt", "title", nil)
	assert.Error(t, err)
}

func TestUploadDocumentSendsMultipart(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "My Notes", r.FormValue("title"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 9, "title": "My Notes", "file_type": "Text", "status": "processed"}`))
	}))

	doc, err := c.UploadDocument(context.Background(), "/tmp/somewhere/notes.txt", "My Notes", strings.NewReader("mitochondria"))
	require.NoError(t, err)
	assert.Equal(t, uint(9), doc.ID)
	assert.Equal(t, "Text", doc.FileType)
}

func TestGenerateTestValidatesConfigBeforeNetwork(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))

	bad := []GenerateTestConfig{
		{ExamType: "essay", QuestionCount: 10, Difficulty: "easy", TimeLimit: 30},
		{ExamType: "mcq", QuestionCount: 0, Difficulty: "easy", TimeLimit: 30},
		{ExamType: "mcq", QuestionCount: 51, Difficulty: "easy", TimeLimit: 30},
		{ExamType: "mcq", QuestionCount: 10, Difficulty: "extreme", TimeLimit: 30},
		{ExamType: "mcq", QuestionCount: 10, Difficulty: "easy", TimeLimit: 4},
		{ExamType: "mcq", QuestionCount: 10, Difficulty: "easy", TimeLimit: 181},
	}
	for _, cfg := range bad {
		_, err := c.GenerateTest(context.Background(), 1, cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestGenerateTestProceedsWithFewerQuestions(t *testing.T) {
	questions := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		questions = append(questions, `{"id": `+string(rune('1'+i))+`, "question_text": "q", "question_type": "multiple_choice", "options": ["a","b"], "order": 0}`)
	}
	body := `{"id": 3, "exam_type": "mcq", "time_limit": 30, "questions": [` + strings.Join(questions, ",") + `]}`

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(body))
	}))

	cfg := GenerateTestConfig{ExamType: "mcq", QuestionCount: 10, Difficulty: "medium", TimeLimit: 30}
	test, err := c.GenerateTest(context.Background(), 1, cfg)
	require.NoError(t, err, "a short question set is accepted")
	assert.Len(t, test.Questions, 7)
}

func TestQuestionVariantDecoding(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 1, "exam_type": "mcq", "questions": [
			{"id": 10, "question_text": "choose", "question_type": "multiple_choice", "options": ["a","b"], "order": 0},
			{"id": 11, "question_text": "explain", "question_type": "short_answer", "options": ["stray"], "order": 1}
		]}`))
	}))

	test, err := c.GetTest(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, test.Questions, 2)

	assert.Equal(t, MultipleChoice, test.Questions[0].Kind)
	assert.Equal(t, []string{"a", "b"}, test.Questions[0].Options)
	assert.Equal(t, ShortAnswer, test.Questions[1].Kind)
	assert.Nil(t, test.Questions[1].Options, "short answer questions never carry options")
}

func TestQuestionVariantRejectsUnknownKind(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 1, "questions": [{"id": 10, "question_type": "true_false"}]}`))
	}))

	_, err := c.GetTest(context.Background(), 1)
	assert.Error(t, err)
}

func TestRefreshUpdatesOnlyAccessToken(t *testing.T) {
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/refresh/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access": "new-acc"}`))
	}))
	require.NoError(t, store.Set(Session{Token: "old-acc", RefreshToken: "ref", User: &User{ID: 2}}))

	require.NoError(t, c.Refresh(context.Background()))

	sess := store.Current()
	require.NotNil(t, sess)
	assert.Equal(t, "new-acc", sess.Token)
	assert.Equal(t, "ref", sess.RefreshToken)
	assert.Equal(t, uint(2), sess.User.ID)
}

func TestRefreshWithoutStoredToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))

	assert.Error(t, c.Refresh(context.Background()))
}
