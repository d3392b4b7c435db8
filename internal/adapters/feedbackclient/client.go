package feedbackclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/usecase/feedback"
	"freelancer-feedback/internal/usecase/session"
)

// Client обращается к HTTP API сервиса отзывов. Перед отправкой отзыв
// проверяется теми же правилами, что и на сервере.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	validator  *feedback.Validator
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// apiResponse — общий конверт ответов API.
type apiResponse struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	ID        int64               `json:"id"`
	Errors    []domain.FieldError `json:"errors"`
	Data      json.RawMessage     `json:"data"`
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		validator:  feedback.NewValidator(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Submit проверяет отзыв локально и отправляет его. Невалидный отзыв
// возвращается как *domain.ValidationError без сетевого запроса.
func (c *Client) Submit(ctx context.Context, in domain.FeedbackInput) (int64, error) {
	if err := c.validator.ValidateInput(in); err != nil {
		return 0, err
	}
	payload := map[string]any{
		feedback.FieldEmail:          in.Email,
		feedback.FieldFreelancerName: in.FreelancerName,
		feedback.FieldProfileURL:     in.ProfileURL,
		feedback.FieldCommunication:  in.Ratings.Communication,
		feedback.FieldQuality:        in.Ratings.Quality,
		feedback.FieldValue:          in.Ratings.Value,
		feedback.FieldTimeliness:     in.Ratings.Timeliness,
		feedback.FieldExpertise:      in.Ratings.Expertise,
		feedback.FieldOverall:        in.Ratings.Overall,
	}
	if in.Comments != nil {
		payload[feedback.FieldComments] = *in.Comments
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/feedback-ingest", nil, payload)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Login обменивает общий секрет на токен сессии.
func (c *Client) Login(ctx context.Context, credential string) (session.Token, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/admin-session", nil, map[string]string{"credential": credential})
	if err != nil {
		return session.Token{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return session.Token{}, err
	}
	return session.Token{Value: resp.Token, ExpiresAt: resp.ExpiresAt}, nil
}

// Logout отзывает токен сессии.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/admin-session", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	_, err = c.do(req)
	return err
}

// Auth задаёт способ доступа к админским данным: токен сессии или общий секрет.
type Auth struct {
	Token      string
	Credential string
}

// Summary возвращает агрегаты по фрилансерам.
func (c *Client) Summary(ctx context.Context, auth Auth) ([]domain.FeedbackSummary, error) {
	var rows []domain.FeedbackSummary
	if err := c.query(ctx, auth, false, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Details возвращает все отзывы, новые первыми.
func (c *Client) Details(ctx context.Context, auth Auth) ([]domain.Feedback, error) {
	var rows []domain.Feedback
	if err := c.query(ctx, auth, true, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) query(ctx context.Context, auth Auth, detailed bool, out any) error {
	params := url.Values{}
	if auth.Credential != "" {
		params.Set("credential", auth.Credential)
	}
	if detailed {
		params.Set("detailed", "true")
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/feedback-query", params, nil)
	if err != nil {
		return err
	}
	if auth.Token != "" {
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, params url.Values, body any) (*http.Request, error) {
	resolved := *c.baseURL
	basePath := strings.TrimSuffix(c.baseURL.Path, "/")
	resolved.Path = path.Clean(basePath + endpoint)
	resolved.RawQuery = params.Encode()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (apiResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("feedback api request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("read response: %w", err)
	}
	var out apiResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil && resp.StatusCode < 300 {
			return apiResponse{}, fmt.Errorf("decode response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		if out.Message == "" {
			out.Message = strings.TrimSpace(string(data))
		}
		return apiResponse{}, mapAPIError(resp.StatusCode, out)
	}
	return out, nil
}

func mapAPIError(status int, resp apiResponse) error {
	switch status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusBadRequest:
		if len(resp.Errors) > 0 {
			return &domain.ValidationError{Fields: resp.Errors}
		}
		return fmt.Errorf("feedback api invalid request: %s", resp.Message)
	default:
		return fmt.Errorf("feedback api error: status=%d message=%s", status, resp.Message)
	}
}
