package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/repository"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
)

type authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.Principal, error)
}

// SessionConfig defines how session tokens are signed.
type SessionConfig struct {
	Secret string
	Issuer string
}

// SessionService issues tokens backed by a stored session principal.
type SessionService struct {
	directory authenticator
	store     Store
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionConfig
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(directory authenticator, store Store, validate *validator.Validate, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SessionService{directory: directory, store: store, validator: validate, logger: logger, config: config}
}

// Login authenticates the user, stores the session principal and returns a token.
func (s *SessionService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	principal, err := s.directory.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	session := models.Session{
		ID:        uuid.NewString(),
		Principal: *principal,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, repository.SessionKey(session.ID), session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	token, err := s.generateToken(session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("session opened", zap.String("username", principal.Username), zap.String("role", string(principal.Role)))

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        *principal,
	}, nil
}

// Resolve validates a token and returns the session it refers to.
func (s *SessionService) Resolve(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := s.store.Load(ctx, repository.SessionKey(claims.ID), &session); err != nil {
		if errors.Is(err, appErrors.ErrStoreMiss) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has ended")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return &session, nil
}

// Logout removes the stored session so its token stops resolving.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return appErrors.ErrUnauthorized
	}
	if err := s.store.Delete(ctx, repository.SessionKey(sessionID)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	return nil
}

// ValidateToken parses and validates a session token returning the claims.
func (s *SessionService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Sessions never expire, so no exp claim is issued.
func (s *SessionService) generateToken(session models.Session) (string, error) {
	issuedAt := session.CreatedAt
	claims := &models.JWTClaims{
		Username: session.Principal.Username,
		Role:     session.Principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    s.config.Issuer,
			Subject:   session.Principal.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}
