package auth

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService owns the user records and the generation credit balances.
type AuthService interface {
	SaveUser(ctx context.Context, userID string, profile models.UserProfile) (*models.User, error)
	UpdateUser(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ConsumeCredit(ctx context.Context, userID string) (CreditKind, error)
	RefundCredit(ctx context.Context, userID string, kind CreditKind) error
	AddCredits(ctx context.Context, userID string, amount int) error
}

type AuthServiceImpl struct {
	logger *zap.Logger
	repo   AuthRepo
}

func NewAuthService(repo AuthRepo, logger *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{logger: logger, repo: repo}
}

func (s *AuthServiceImpl) SaveUser(ctx context.Context, userID string, profile models.UserProfile) (*models.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SaveUser", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	profile.FirstName = strings.TrimSpace(profile.FirstName)
	profile.LastName = strings.TrimSpace(profile.LastName)

	user, err := s.repo.UpsertUser(ctx, userID, profile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save user failed")
		return nil, err
	}
	s.logger.Debug("user saved", zap.String("userId", userID))
	return user, nil
}

func (s *AuthServiceImpl) UpdateUser(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "UpdateUser")
	defer span.End()

	user, err := s.repo.UpdateUserNames(ctx, userID, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName))
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", userID, err)
	}
	return user, nil
}

func (s *AuthServiceImpl) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.GetUserByUserID(ctx, userID)
}

func (s *AuthServiceImpl) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *AuthServiceImpl) ConsumeCredit(ctx context.Context, userID string) (CreditKind, error) {
	kind, err := s.repo.ConsumeCredit(ctx, userID)
	if err != nil {
		return "", err
	}
	s.logger.Info("generation credit consumed", zap.String("userId", userID), zap.String("kind", string(kind)))
	return kind, nil
}

func (s *AuthServiceImpl) RefundCredit(ctx context.Context, userID string, kind CreditKind) error {
	if err := s.repo.RefundCredit(ctx, userID, kind); err != nil {
		s.logger.Error("failed to refund credit", zap.String("userId", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *AuthServiceImpl) AddCredits(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive: %w", models.ErrValidation)
	}
	return s.repo.AddCredits(ctx, userID, amount)
}
