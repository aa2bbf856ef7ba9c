package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "github.com/yashrajoria/webook/common/errors"
	"github.com/yashrajoria/webook/common/logger"
	"github.com/yashrajoria/webook/models"
	awspkg "github.com/yashrajoria/webook/pkg/aws"
	"github.com/yashrajoria/webook/repository"
)

// DefaultAdminEmail is the address that registers as admin when none is
// configured.
const DefaultAdminEmail = "admin@webook.com"

// AuthService handles login and registration.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, *apperrors.Error)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, *apperrors.Error)
}

type authServiceImpl struct {
	repo       repository.UserRepository
	tokens     *TokenService
	adminEmail string
	events     *awspkg.EventPublisher
	logger     *zap.Logger
}

func (s *authServiceImpl) log(ctx context.Context) *zap.Logger {
	return logger.With(ctx, s.logger)
}

// NewAuthService creates an AuthService. tokens may be nil, in which case
// responses carry no token.
func NewAuthService(
	repo repository.UserRepository,
	tokens *TokenService,
	adminEmail string,
	events *awspkg.EventPublisher,
	logger *zap.Logger,
) AuthService {
	if strings.TrimSpace(adminEmail) == "" {
		adminEmail = DefaultAdminEmail
	}
	return &authServiceImpl{
		repo:       repo,
		tokens:     tokens,
		adminEmail: normalizeEmail(adminEmail),
		events:     events,
		logger:     logger,
	}
}

// RoleFor returns the role a new account with this email receives.
func (s *authServiceImpl) RoleFor(email string) string {
	if normalizeEmail(email) == s.adminEmail {
		return models.RoleAdmin
	}
	return models.RoleUser
}

func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*models.AuthResponse, *apperrors.Error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		s.log(ctx).Error("Failed to look up user", zap.Error(err))
		return nil, internalError(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	resp := &models.AuthResponse{User: *user, Message: "Login successful"}
	if resp.Token, err = s.issueToken(user); err != nil {
		return nil, internalError(err)
	}
	s.log(ctx).Info("User logged in", zap.Uint("user_id", user.ID))
	return resp, nil
}

func (s *authServiceImpl) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, *apperrors.Error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = localPart(email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log(ctx).Error("Failed to hash password", zap.Error(err))
		return nil, internalError(err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     s.RoleFor(email),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, apperrors.ErrEmailExists
		}
		s.log(ctx).Error("Failed to create user", zap.Error(err))
		return nil, internalError(err)
	}

	resp := &models.AuthResponse{User: *user, Message: "User registered successfully"}
	if resp.Token, err = s.issueToken(user); err != nil {
		return nil, internalError(err)
	}
	s.log(ctx).Info("User registered", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	s.events.Emit(ctx, EventUserRegistered, models.UserEvent{
		EventType: EventUserRegistered,
		UserID:    user.ID,
		Role:      user.Role,
		Timestamp: time.Now().UTC(),
	})
	return resp, nil
}

func (s *authServiceImpl) issueToken(user *models.User) (string, error) {
	if s.tokens == nil {
		return "", nil
	}
	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
	}
	return token, err
}

// isDuplicate recognizes unique violations with or without gorm's error
// translation.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
