package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"freelancer-feedback/internal/domain"
	infrahttp "freelancer-feedback/internal/infra/http"
	"freelancer-feedback/internal/infra/metrics"
	"freelancer-feedback/internal/usecase/session"
)

// MaxBodyBytes ограничивает размер тела запроса на приём отзыва.
const MaxBodyBytes = 64 << 10

const (
	msgSubmitted     = "Feedback submitted successfully"
	msgInvalid       = "Invalid feedback data"
	msgSaveFailed    = "Failed to save feedback"
	msgFetchFailed   = "Failed to fetch feedback data"
	msgUnauthorized  = "Unauthorized"
	msgBadRequest    = "Invalid request body"
	msgSessionFailed = "Failed to manage session"

	modeSummary  = "summary"
	modeDetailed = "detailed"
)

// FeedbackService — операции над отзывами, нужные HTTP слою.
type FeedbackService interface {
	Submit(ctx context.Context, body []byte) (int64, error)
	Summary(ctx context.Context) ([]domain.FeedbackSummary, error)
	Details(ctx context.Context) ([]domain.Feedback, error)
}

// SessionService — проверка доступа к админским данным.
type SessionService interface {
	Login(ctx context.Context, credential string) (session.Token, error)
	Revoke(ctx context.Context, token string) error
	Authorize(ctx context.Context, bearer, credential string) error
}

// Server обслуживает публичный приём отзывов и админскую выдачу.
type Server struct {
	feedback FeedbackService
	sessions SessionService
	log      zerolog.Logger
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

type response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	ID      *int64              `json:"id,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	Data    any                 `json:"data,omitempty"`
}

type sessionRequest struct {
	Credential string `json:"credential"`
}

type sessionResponse struct {
	Success bool `json:"success"`
	session.Token
}

func NewServer(feedback FeedbackService, sessions SessionService, opts ...Option) *Server {
	srv := &Server{feedback: feedback, sessions: sessions, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Mount регистрирует маршруты на переданном роутере.
func (s *Server) Mount(r chi.Router) {
	r.Post("/feedback-ingest", s.handleIngest)
	r.Get("/feedback-query", s.handleQuery)
	r.Post("/admin-session", s.handleLogin)
	r.Delete("/admin-session", s.handleLogout)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	s.Mount(r)
	return r
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.IncSubmission(metrics.OutcomeInvalid)
			writeJSON(w, http.StatusBadRequest, response{
				Message: msgInvalid,
				Errors:  []domain.FieldError{{Field: "body", Message: "request body too large"}},
			})
			return
		}
		metrics.IncSubmission(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, response{Message: msgBadRequest})
		return
	}

	id, err := s.feedback.Submit(r.Context(), body)
	if err != nil {
		if vErr, ok := domain.AsValidationError(err); ok {
			writeJSON(w, http.StatusBadRequest, response{Message: msgInvalid, Errors: vErr.Fields})
			return
		}
		s.log.Error().Err(err).Str("request_id", infrahttp.RequestID(r)).Msg("не удалось сохранить отзыв")
		writeJSON(w, http.StatusInternalServerError, response{Message: msgSaveFailed})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: msgSubmitted, ID: &id})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	detailed, _ := strconv.ParseBool(query.Get("detailed"))
	mode := modeSummary
	if detailed {
		mode = modeDetailed
	}

	if err := s.sessions.Authorize(r.Context(), infrahttp.BearerToken(r), query.Get("credential")); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			metrics.IncQuery(mode, metrics.OutcomeUnauthorized)
			writeJSON(w, http.StatusUnauthorized, response{Message: msgUnauthorized})
			return
		}
		metrics.IncQuery(mode, metrics.OutcomeFailed)
		s.log.Error().Err(err).Str("request_id", infrahttp.RequestID(r)).Msg("не удалось проверить сессию")
		writeJSON(w, http.StatusInternalServerError, response{Message: msgFetchFailed})
		return
	}

	var (
		data any
		err  error
	)
	if detailed {
		var rows []domain.Feedback
		rows, err = s.feedback.Details(r.Context())
		data = nonNil(rows)
	} else {
		var rows []domain.FeedbackSummary
		rows, err = s.feedback.Summary(r.Context())
		data = nonNil(rows)
	}
	if err != nil {
		metrics.IncQuery(mode, metrics.OutcomeFailed)
		s.log.Error().Err(err).Str("mode", mode).Str("request_id", infrahttp.RequestID(r)).Msg("не удалось получить отзывы")
		writeJSON(w, http.StatusInternalServerError, response{Message: msgFetchFailed})
		return
	}
	metrics.IncQuery(mode, metrics.OutcomeAccepted)
	writeJSON(w, http.StatusOK, response{Success: true, Data: data})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Message: msgBadRequest})
		return
	}
	token, err := s.sessions.Login(r.Context(), req.Credential)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Revoke(r.Context(), infrahttp.BearerToken(r)); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, response{Message: msgUnauthorized})
		return
	}
	s.log.Error().Err(err).Str("request_id", infrahttp.RequestID(r)).Msg("ошибка админской сессии")
	writeJSON(w, http.StatusInternalServerError, response{Message: msgSessionFailed})
}

// nonNil заменяет nil срез пустым, чтобы в JSON был [] а не null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
