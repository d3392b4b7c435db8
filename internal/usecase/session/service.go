package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"freelancer-feedback/internal/domain"
)

const adminSubject = "admin"

// Token — выданный токен админской сессии.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service проверяет общий секрет и выдаёт подписанные токены сессий.
type Service struct {
	secret string
	key    []byte
	ttl    time.Duration
	store  domain.SessionStore
	now    func() time.Time
}

// Config задаёт параметры сервиса сессий.
type Config struct {
	Secret   string
	TokenKey string
	TTL      time.Duration
	// Store может быть nil: тогда токены проверяются только по подписи и сроку.
	Store domain.SessionStore
}

// NewService создаёт сервис. Без TokenKey ключ подписи выводится из секрета.
func NewService(cfg Config) *Service {
	key := []byte(cfg.TokenKey)
	if len(key) == 0 {
		sum := sha256.Sum256([]byte(cfg.Secret))
		key = sum[:]
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{secret: cfg.Secret, key: key, ttl: ttl, store: cfg.Store, now: time.Now}
}

// CheckCredential сравнивает переданный секрет с настроенным на точное равенство.
func (s *Service) CheckCredential(credential string) error {
	if credential == "" || s.secret == "" {
		return domain.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(s.secret)) != 1 {
		return domain.ErrUnauthorized
	}
	return nil
}

// Login проверяет секрет и выдаёт токен сессии.
func (s *Service) Login(ctx context.Context, credential string) (Token, error) {
	if err := s.CheckCredential(credential); err != nil {
		return Token{}, err
	}
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	id := uuid.NewString()
	claims := jwt.RegisteredClaims{
		ID:        id,
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign session token: %w", err)
	}
	if s.store != nil {
		if err := s.store.Save(ctx, id, s.ttl); err != nil {
			return Token{}, fmt.Errorf("save session: %w", err)
		}
	}
	return Token{Value: signed, ExpiresAt: expires}, nil
}

// Verify проверяет подпись, срок и (при наличии хранилища) то, что сессия не отозвана.
func (s *Service) Verify(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if s.store == nil {
		return nil
	}
	ok, err := s.store.Exists(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

// Revoke отзывает сессию. Без хранилища отзыв невозможен и считается успешным.
func (s *Service) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authorize допускает запрос либо по токену сессии, либо по общему секрету.
// Сначала проверяется токен; если он недействителен, но передан секрет,
// решает секрет.
func (s *Service) Authorize(ctx context.Context, bearer, credential string) error {
	if bearer != "" {
		err := s.Verify(ctx, bearer)
		if err == nil || credential == "" {
			return err
		}
	}
	return s.CheckCredential(credential)
}

func (s *Service) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if claims.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	return &claims, nil
}
