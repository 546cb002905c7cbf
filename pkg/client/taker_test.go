package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// takerServer fakes the three endpoints a test-taking session touches and
// records every submission payload it receives.
type takerServer struct {
	mu             sync.Mutex
	test           Test
	attemptCreated int
	submits        [][]SubmittedAnswer
	failSubmits    int // fail this many submits with a 500 before succeeding
}

func (s *takerServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tests/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		writeTestJSON(w, s.test)
	})

	mux.HandleFunc("POST /api/test-attempts/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/submit/") {
			s.handleSubmit(w, r)
			return
		}
		s.mu.Lock()
		s.attemptCreated++
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 42, "test": 1, "exam_type": "mcq"}`))
	})

	return mux
}

func (s *takerServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []SubmittedAnswer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSubmits > 0 {
		s.failSubmits--
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "grading backend unavailable"}`))
		return
	}
	s.submits = append(s.submits, req.Answers)
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"id": 42, "test": 1, "exam_type": "mcq", "score": 50, "completed_at": "2026-01-02T15:04:05Z"}`))
}

func (s *takerServer) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submits)
}

// writeTestJSON re-encodes a Test into the wire format the server uses.
func writeTestJSON(w http.ResponseWriter, test Test) {
	type wireQuestion struct {
		ID           uint     `json:"id"`
		QuestionText string   `json:"question_text"`
		QuestionType string   `json:"question_type"`
		Options      []string `json:"options,omitempty"`
		Order        int      `json:"order"`
	}
	questions := make([]wireQuestion, 0, len(test.Questions))
	for _, q := range test.Questions {
		kind := "multiple_choice"
		if q.Kind == ShortAnswer {
			kind = "short_answer"
		}
		questions = append(questions, wireQuestion{
			ID: q.ID, QuestionText: q.Text, QuestionType: kind, Options: q.Options, Order: q.Order,
		})
	}
	json.NewEncoder(w).Encode(map[string]any{
		"id":         test.ID,
		"exam_type":  test.ExamType,
		"time_limit": test.TimeLimit,
		"questions":  questions,
	})
}

func threeQuestionTest() Test {
	return Test{
		ID:       1,
		ExamType: "mcq",
		Questions: []Question{
			{ID: 10, Text: "first", Kind: MultipleChoice, Options: []string{"a", "b"}, Order: 0},
			{ID: 11, Text: "second", Kind: MultipleChoice, Options: []string{"a", "b"}, Order: 1},
			{ID: 12, Text: "third", Kind: MultipleChoice, Options: []string{"a", "b"}, Order: 2},
		},
	}
}

func newTakerFixture(t *testing.T, srv *takerServer, opts ...TakerOption) *Taker {
	t.Helper()
	server := httptest.NewServer(srv.handler())
	t.Cleanup(server.Close)

	store, err := NewSessionStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set(Session{Token: "tok"}))

	taker := NewTaker(New(server.URL, store), opts...)
	t.Cleanup(taker.Teardown)
	return taker
}

func TestBeginReachesReady(t *testing.T) {
	srv := &takerServer{test: threeQuestionTest()}
	ticks := make(chan time.Time)
	taker := newTakerFixture(t, srv, WithTicks(ticks))

	require.NoError(t, taker.Begin(context.Background(), 1))
	assert.Equal(t, StateReady, taker.State())
	assert.Equal(t, 1, srv.attemptCreated)
	assert.Equal(t, 1800, taker.Remaining(), "no time limit means the 1800s default")

	q := taker.Current()
	require.NotNil(t, q)
	assert.Equal(t, uint(10), q.ID)
}

func TestBeginUsesTestTimeLimit(t *testing.T) {
	test := threeQuestionTest()
	test.TimeLimit = 45 // minutes
	srv := &takerServer{test: test}
	taker := newTakerFixture(t, srv, WithTicks(make(chan time.Time)))

	require.NoError(t, taker.Begin(context.Background(), 1))
	assert.Equal(t, 45*60, taker.Remaining())
}

func TestBeginZeroQuestionsShortCircuits(t *testing.T) {
	srv := &takerServer{test: Test{ID: 1, ExamType: "mcq"}}
	taker := newTakerFixture(t, srv, WithTicks(make(chan time.Time)))

	require.NoError(t, taker.Begin(context.Background(), 1))
	assert.Equal(t, StateNoQuestions, taker.State())
	assert.Zero(t, srv.attemptCreated, "no attempt is created for an empty test")
}

func TestBeginLoadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	store, err := NewSessionStore(t.TempDir())
	require.NoError(t, err)
	taker := NewTaker(New(server.URL, store), WithTicks(make(chan time.Time)))

	assert.Error(t, taker.Begin(context.Background(), 1))
	assert.Equal(t, StateError, taker.State())
	assert.Error(t, taker.Err())
}

func TestNavigationClamping(t *testing.T) {
	srv := &takerServer{test: threeQuestionTest()}
	taker := newTakerFixture(t, srv, WithTicks(make(chan time.Time)))
	require.NoError(t, taker.Begin(context.Background(), 1))

	assert.Equal(t, 0, taker.Prev(), "prev at the first question stays put")
	assert.Equal(t, 1, taker.Next())
	assert.Equal(t, 2, taker.Next())
	assert.Equal(t, 2, taker.Next(), "next at the last question stays put")
	assert.Equal(t, 0, taker.Seek(-5))
	assert.Equal(t, 2, taker.Seek(99))
	assert.Equal(t, 1, taker.Seek(1))
}

func TestRecordAnswerLastWriteWins(t *testing.T) {
	srv := &takerServer{test: threeQuestionTest()}
	taker := newTakerFixture(t, srv, WithTicks(make(chan time.Time)))
	require.NoError(t, taker.Begin(context.Background(), 1))

	taker.RecordAnswer(10, "a")
	taker.RecordAnswer(10, "b")
	answer, ok := taker.Answer(10)
	require.True(t, ok)
	assert.Equal(t, "b", answer)
}

func TestSubmitSendsRecordedSubsetInQuestionOrder(t *testing.T) {
	srv := &takerServer{test: threeQuestionTest()}
	taker := newTakerFixture(t, srv, WithTicks(make(chan time.Time)))
	require.NoError(t, taker.Begin(context.Background(), 1))

	// Answered out of order, middle question skipped, one answer blank but
	// explicitly recorded.
	taker.RecordAnswer(12, "")
	taker.RecordAnswer(10, "a")

	resultID, err := taker.Submit()
	require.NoError(t, err)
	assert.Equal(t, uint(42), resultID)
	assert.Equal(t, StateDone, taker.State())

	require.Len(t, srv.submits, 1)
	payload := srv.submits[0]
	require.Len(t, payload, 2, "unanswered questions are absent")
	assert.Equal(t, uint(10), payload[0].QuestionID)
	assert.Equal(t, "a", payload[0].Answer)
	assert.Equal(t, uint(12), payload[1].QuestionID)
	assert.Equal(t, "", payload[1].Answer, "an explicitly blank answer is kept")
}

func TestSubmitFailureReturnsToReadyKeepingAnswers(t *testing.T) {
	srv := &takerServer{test: threeQuestionTest(), failSubmits: 1}
	taker := newTakerFixture(t, srv, WithTicks(make(chan time.Time)))
	require.NoError(t, taker.Begin(context.Background(), 1))

	taker.RecordAnswer(10, "a")

	_, err := taker.Submit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grading backend unavailable")
	assert.Equal(t, StateReady, taker.State())
	assert.Error(t, taker.Err())

	answer, ok := taker.Answer(10)
	require.True(t, ok, "answers survive a failed submit")
	assert.Equal(t, "a", answer)

	// The retry succeeds and completes the session.
	resultID, err := taker.Submit()
	require.NoError(t, err)
	assert.Equal(t, uint(42), resultID)
	assert.Equal(t, StateDone, taker.State())
}

func TestCountdownAutoSubmitsExactlyOnce(t *testing.T) {
	srv := &takerServer{test: threeQuestionTest()}
	ticks := make(chan time.Time, 1800)
	taker := newTakerFixture(t, srv, WithTicks(ticks))
	require.NoError(t, taker.Begin(context.Background(), 1))

	taker.RecordAnswer(10, "a")
	for i := 0; i < 1800; i++ {
		ticks <- time.Time{}
	}

	require.Eventually(t, func() bool {
		return taker.State() == StateDone
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, srv.submitCount())
}

func TestTimerAndManualSubmitRaceSingleRequest(t *testing.T) {
	srv := &takerServer{test: threeQuestionTest()}
	ticks := make(chan time.Time, 1800)
	taker := newTakerFixture(t, srv, WithTicks(ticks))
	require.NoError(t, taker.Begin(context.Background(), 1))

	taker.RecordAnswer(10, "a")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1800; i++ {
			select {
			case ticks <- time.Time{}:
			default:
				return // countdown already stopped consuming
			}
		}
	}()
	go func() {
		defer wg.Done()
		taker.Submit()
	}()
	wg.Wait()

	require.Eventually(t, func() bool {
		return taker.State() == StateDone
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, srv.submitCount(), "the submit guard allows a single request")
}

func TestSubmitAfterDoneIsNoOp(t *testing.T) {
	srv := &takerServer{test: threeQuestionTest()}
	taker := newTakerFixture(t, srv, WithTicks(make(chan time.Time)))
	require.NoError(t, taker.Begin(context.Background(), 1))

	_, err := taker.Submit()
	require.NoError(t, err)

	resultID, err := taker.Submit()
	assert.NoError(t, err)
	assert.Equal(t, uint(42), resultID, "a repeat submit reports the existing result")
	assert.Equal(t, 1, srv.submitCount())
}
