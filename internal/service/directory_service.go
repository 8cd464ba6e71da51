package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/repository"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
)

// DirectoryService maps usernames to credentials and roles.
type DirectoryService struct {
	store     Store
	validator *validator.Validate
	logger    *zap.Logger
	hashCost  int
	now       func() time.Time

	mu    sync.RWMutex
	users map[string]models.User
}

// DirectoryOption configures the directory.
type DirectoryOption func(*DirectoryService)

// WithPasswordCost overrides the bcrypt cost.
func WithPasswordCost(cost int) DirectoryOption {
	return func(s *DirectoryService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.hashCost = cost
		}
	}
}

// NewDirectoryService constructs an empty directory; call Restore to load persisted users.
func NewDirectoryService(store Store, validate *validator.Validate, logger *zap.Logger, opts ...DirectoryOption) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &DirectoryService{
		store:     store,
		validator: validate,
		logger:    logger,
		hashCost:  bcrypt.DefaultCost,
		now:       func() time.Time { return time.Now().UTC() },
		users:     make(map[string]models.User),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Restore loads the persisted directory. An absent key leaves it empty.
func (s *DirectoryService) Restore(ctx context.Context) error {
	users := make(map[string]models.User)
	if err := s.store.Load(ctx, repository.KeyDirectory, &users); err != nil {
		if errors.Is(err, appErrors.ErrStoreMiss) {
			return nil
		}
		return fmt.Errorf("restore directory: %w", err)
	}
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	s.logger.Info("directory restored", zap.Int("users", len(users)))
	return nil
}

// Register creates a student or teacher account.
func (s *DirectoryService) Register(ctx context.Context, req models.RegisterRequest) (*models.Principal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	role, err := models.ParseUserRole(req.Role)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be student or teacher")
	}
	switch role {
	case models.RoleStudent, models.RoleTeacher:
	case models.RoleAdmin:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin accounts cannot be self-registered")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be student or teacher")
	}
	return s.create(ctx, req.Username, req.Password, role)
}

// EnsureUser creates the account when the username is free. It reports whether a user was created.
func (s *DirectoryService) EnsureUser(ctx context.Context, username, password string, role models.UserRole) (bool, error) {
	if !role.Valid() {
		return false, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if _, err := s.create(ctx, username, password, role); err != nil {
		if appErrors.HasCode(err, appErrors.ErrConflict.Code) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *DirectoryService) create(ctx context.Context, username, password string, role models.UserRole) (*models.Principal, error) {
	name := models.NormalizeUsername(username)
	if name == "" || strings.TrimSpace(password) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password must be at most 72 bytes")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := models.User{Username: name, PasswordHash: string(hash), Role: role, CreatedAt: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[name]; exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	}
	next := make(map[string]models.User, len(s.users)+1)
	for k, v := range s.users {
		next[k] = v
	}
	next[name] = user
	if err := s.store.Save(ctx, repository.KeyDirectory, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist directory")
	}
	s.users = next
	s.logger.Info("user registered", zap.String("username", name), zap.String("role", string(role)))

	principal := user.Principal()
	return &principal, nil
}

// Authenticate verifies credentials and returns the principal.
func (s *DirectoryService) Authenticate(ctx context.Context, username, password string) (*models.Principal, error) {
	s.mu.RLock()
	user, ok := s.users[models.NormalizeUsername(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}
	principal := user.Principal()
	return &principal, nil
}

// Lookup returns the principal for a username.
func (s *DirectoryService) Lookup(ctx context.Context, username string) (*models.Principal, error) {
	s.mu.RLock()
	user, ok := s.users[models.NormalizeUsername(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	principal := user.Principal()
	return &principal, nil
}

// ListUsersByRole returns the sorted usernames holding role.
func (s *DirectoryService) ListUsersByRole(ctx context.Context, role models.UserRole) ([]string, error) {
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	s.mu.RLock()
	names := make([]string, 0, len(s.users))
	for name, user := range s.users {
		if user.Role == role {
			names = append(names, name)
		}
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names, nil
}
