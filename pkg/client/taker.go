package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TakerState is the lifecycle state of a test-taking session.
type TakerState int

const (
	StateLoading TakerState = iota
	StateReady
	StateSubmitting
	StateDone
	StateError
	StateNoQuestions
)

func (s TakerState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	case StateNoQuestions:
		return "no_questions"
	default:
		return "unknown"
	}
}

// defaultTimeLimit is used when the test carries no usable time limit.
const defaultTimeLimit = 1800 * time.Second

// Taker drives one attempt at a test: it loads the test, starts the attempt
// and the countdown, records answers, and submits exactly once, whether the
// user or the expiring timer triggers it. All exported methods are safe for
// concurrent use.
type Taker struct {
	client *Client

	mu         sync.Mutex
	state      TakerState
	test       *Test
	attemptID  uint
	answers    map[uint]string
	index      int
	remaining  int // seconds
	submitting bool
	resultID   uint
	lastErr    error

	ctx    context.Context
	cancel context.CancelFunc
	ticks  <-chan time.Time
	stop   func()
}

// TakerOption customizes a Taker, mainly for tests.
type TakerOption func(*Taker)

// WithTicks replaces the wall-clock one-second ticker. Each received value
// counts down one second.
func WithTicks(ch <-chan time.Time) TakerOption {
	return func(t *Taker) {
		t.ticks = ch
		t.stop = func() {}
	}
}

// NewTaker builds a Taker around an API client. Call Begin to start.
func NewTaker(c *Client, opts ...TakerOption) *Taker {
	t := &Taker{
		client:  c,
		state:   StateLoading,
		answers: make(map[uint]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Begin loads the test and creates the attempt. Both must succeed before the
// session becomes Ready and the countdown starts. A test with no questions
// short-circuits to NoQuestions without creating an attempt or a timer.
func (t *Taker) Begin(ctx context.Context, testID uint) error {
	t.mu.Lock()
	if t.state != StateLoading {
		t.mu.Unlock()
		return t.lastErr
	}
	t.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	test, err := t.client.GetTest(runCtx, testID)
	if err != nil {
		cancel()
		return t.fail(err)
	}
	if len(test.Questions) == 0 {
		cancel()
		t.mu.Lock()
		t.test = test
		t.state = StateNoQuestions
		t.mu.Unlock()
		return nil
	}

	attempt, err := t.client.CreateAttempt(runCtx, testID)
	if err != nil {
		cancel()
		return t.fail(err)
	}

	t.mu.Lock()
	t.ctx = runCtx
	t.cancel = cancel
	t.test = test
	t.attemptID = attempt.ID
	t.state = StateReady
	t.remaining = int(defaultTimeLimit.Seconds())
	if test.TimeLimit > 0 {
		t.remaining = test.TimeLimit * 60
	}
	if t.ticks == nil {
		ticker := time.NewTicker(time.Second)
		t.ticks = ticker.C
		t.stop = ticker.Stop
	}
	t.mu.Unlock()

	go t.countdown(runCtx)
	return nil
}

func (t *Taker) fail(err error) error {
	t.mu.Lock()
	t.state = StateError
	t.lastErr = err
	t.mu.Unlock()
	return err
}

func (t *Taker) countdown(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.ticks:
			t.mu.Lock()
			if t.state != StateReady {
				t.mu.Unlock()
				continue
			}
			t.remaining--
			expired := t.remaining <= 0
			t.mu.Unlock()
			if expired {
				log.Info().Uint("attemptID", t.attemptID).Msg("Time limit reached, submitting attempt")
				if _, err := t.Submit(); err != nil {
					log.Warn().Err(err).Uint("attemptID", t.attemptID).Msg("Automatic submit failed")
				}
				return
			}
		}
	}
}

// State reports the current lifecycle state.
func (t *Taker) State() TakerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the error behind an Error state, or the inline error of the
// last failed submit.
func (t *Taker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Remaining reports seconds left on the countdown.
func (t *Taker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// ResultID returns the attempt id once the session is Done.
func (t *Taker) ResultID() uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resultID
}

// Current returns the question at the cursor, or nil before Ready.
func (t *Taker) Current() *Question {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.test == nil || len(t.test.Questions) == 0 {
		return nil
	}
	q := t.test.Questions[t.index]
	return &q
}

// Next advances the cursor, clamped to the last question.
func (t *Taker) Next() int { return t.seek(+1) }

// Prev moves the cursor back, clamped to the first question.
func (t *Taker) Prev() int { return t.seek(-1) }

func (t *Taker) seek(delta int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seekLocked(t.index + delta)
}

// Seek jumps to a question index, clamped to the valid range.
func (t *Taker) Seek(index int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seekLocked(index)
}

func (t *Taker) seekLocked(index int) int {
	if t.test == nil || len(t.test.Questions) == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if max := len(t.test.Questions) - 1; index > max {
		index = max
	}
	t.index = index
	return t.index
}

// RecordAnswer stores the answer for a question, replacing any earlier value.
// Recorded answers survive failed submits; only teardown or a successful
// submit discards them.
func (t *Taker) RecordAnswer(questionID uint, answer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answers[questionID] = answer
}

// Answer returns the recorded answer for a question and whether one exists.
func (t *Taker) Answer(questionID uint) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.answers[questionID]
	return a, ok
}

// Submit sends the recorded answers for grading. The payload contains exactly
// the questions that were answered, in question order; unanswered questions
// are absent. A submitting guard ensures at most one request is in flight
// even when the timer and the user race. On failure the session returns to
// Ready with the answers intact and the error available via Err.
func (t *Taker) Submit() (uint, error) {
	t.mu.Lock()
	if t.state != StateReady || t.submitting {
		id, err := t.resultID, t.lastErr
		t.mu.Unlock()
		return id, err
	}
	t.submitting = true
	t.state = StateSubmitting
	t.lastErr = nil

	payload := make([]SubmittedAnswer, 0, len(t.answers))
	for _, q := range t.test.Questions {
		if answer, ok := t.answers[q.ID]; ok {
			payload = append(payload, SubmittedAnswer{QuestionID: q.ID, Answer: answer})
		}
	}
	attemptID := t.attemptID
	ctx := t.ctx
	t.mu.Unlock()

	attempt, err := t.client.SubmitAttempt(ctx, attemptID, payload)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitting = false
	if err != nil {
		t.state = StateReady
		t.lastErr = err
		return 0, err
	}
	t.state = StateDone
	t.resultID = attempt.ID
	t.answers = make(map[uint]string)
	if t.cancel != nil {
		t.cancel()
	}
	if t.stop != nil {
		t.stop()
	}
	return t.resultID, nil
}

// Teardown cancels the countdown and any in-flight request. The session is
// unusable afterwards.
func (t *Taker) Teardown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	if t.stop != nil {
		t.stop()
	}
	t.answers = make(map[uint]string)
}
