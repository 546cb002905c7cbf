package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrUnauthorized is returned when the server rejects the session. The
// persisted session has already been cleared by the time callers see it.
var ErrUnauthorized = fmt.Errorf("session rejected by server")

// Client is a typed HTTP client for the Margay API. The access token is read
// from the session store at request time; a 401 response clears the store and
// fires OnUnauthorized, and the request is never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *SessionStore

	// OnUnauthorized is invoked once per 401 response, after the session
	// has been cleared. Optional.
	OnUnauthorized func()
}

// New builds a Client for the API at baseURL (without the /api suffix).
func New(baseURL string, store *SessionStore) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api",
		httpClient: &http.Client{},
		store:      store,
	}
}

type apiError struct {
	Message string   `json:"error"`
	Details []string `json:"details"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.store.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if clearErr := c.store.Clear(); clearErr != nil {
			log.Warn().Err(clearErr).Msg("Failed to clear session after 401")
		}
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return ErrUnauthorized
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, body, "application/json", out)
}

// decodeError prefers the server's structured {error: msg} body and falls
// back to a status-based message.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var apiErr apiError
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
		if len(apiErr.Details) > 0 {
			return fmt.Errorf("%s: %s", apiErr.Message, strings.Join(apiErr.Details, "; "))
		}
		return fmt.Errorf("%s", apiErr.Message)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}

// Register creates an account and persists the returned session.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*User, error) {
	payload := map[string]string{"email": email, "password": password, "full_name": fullName}
	return c.authenticate(ctx, "/auth/register/", payload)
}

// Login authenticates and persists the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	payload := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login/", payload)
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (*User, error) {
	var resp struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		User    *User  `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	sess := Session{Token: resp.Access, RefreshToken: resp.Refresh, User: resp.User}
	if err := c.store.Set(sess); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Refresh exchanges the stored refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context) error {
	sess := c.store.Current()
	if sess == nil || sess.RefreshToken == "" {
		return fmt.Errorf("no refresh token stored")
	}
	var resp struct {
		Access string `json:"access"`
	}
	payload := map[string]string{"refresh": sess.RefreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh/", payload, &resp); err != nil {
		return err
	}
	return c.store.SetToken(resp.Access)
}

// Logout drops the persisted session. It is purely client-side.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// ListDocuments returns the user's documents, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := c.doJSON(ctx, http.MethodGet, "/documents/", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UploadDocument uploads exactly one file. The title defaults server-side to
// the filename when empty. An empty filename or nil reader is rejected before
// any network call.
func (c *Client) UploadDocument(ctx context.Context, filename, title string, file io.Reader) (*Document, error) {
	if filename == "" {
		return nil, fmt.Errorf("no file selected")
	}
	if file == nil {
		return nil, fmt.Errorf("no file content provided")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}
	if title != "" {
		if err := writer.WriteField("title", title); err != nil {
			return nil, fmt.Errorf("failed to build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	var doc Document
	if err := c.do(ctx, http.MethodPost, "/documents/", &buf, writer.FormDataContentType(), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument fetches one document by id.
func (c *Client) GetDocument(ctx context.Context, id uint) (*Document, error) {
	var doc Document
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/documents/%d/", id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document and its generated tests.
func (c *Client) DeleteDocument(ctx context.Context, id uint) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/documents/%d/", id), nil, nil)
}

// GenerateTest asks the server to generate a test from a document. Receiving
// fewer questions than requested is a soft failure: a warning is logged and
// the smaller test is returned.
func (c *Client) GenerateTest(ctx context.Context, documentID uint, cfg GenerateTestConfig) (*Test, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var test Test
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/documents/%d/generate_test/", documentID), cfg, &test); err != nil {
		return nil, err
	}
	if len(test.Questions) < cfg.QuestionCount {
		log.Warn().
			Uint("testID", test.ID).
			Int("requested", cfg.QuestionCount).
			Int("received", len(test.Questions)).
			Msg("Generated test has fewer questions than requested")
	}
	return &test, nil
}

// GetTest fetches a test with its questions.
func (c *Client) GetTest(ctx context.Context, id uint) (*Test, error) {
	var test Test
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/tests/%d/", id), nil, &test); err != nil {
		return nil, err
	}
	return &test, nil
}

// CreateAttempt starts a fresh attempt for a test.
func (c *Client) CreateAttempt(ctx context.Context, testID uint) (*Attempt, error) {
	var attempt Attempt
	payload := map[string]uint{"test": testID}
	if err := c.doJSON(ctx, http.MethodPost, "/test-attempts/", payload, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// GetAttempt fetches an attempt with its graded answers.
func (c *Client) GetAttempt(ctx context.Context, id uint) (*Attempt, error) {
	var attempt Attempt
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/test-attempts/%d/", id), nil, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// SubmitAttempt submits answers for grading and returns the scored attempt.
func (c *Client) SubmitAttempt(ctx context.Context, attemptID uint, answers []SubmittedAnswer) (*Attempt, error) {
	var attempt Attempt
	payload := map[string][]SubmittedAnswer{"answers": answers}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/test-attempts/%d/submit/", attemptID), payload, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}
