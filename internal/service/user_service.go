package service

import (
	"context"

	"lexchat-be/internal/dto"
	"lexchat-be/internal/pkg/logger"
	"lexchat-be/pkg/backend"
)

// IUserService fronts the account backend for the thin user surface this
// service needs: ensuring the account exists after sign-in, and reading the
// cached entitlement.
type IUserService interface {
	// Register ensures the signed-in identity exists on the account backend
	// and warms its entitlement snapshot.
	Register(ctx context.Context, userId string) error

	Entitlement(userId string) *dto.EntitlementResponse
}

type userService struct {
	backend     backend.Client
	entitlement IEntitlementService
	logger      logger.ILogger
}

func NewUserService(client backend.Client, entitlement IEntitlementService, log logger.ILogger) IUserService {
	return &userService{
		backend:     client,
		entitlement: entitlement,
		logger:      log,
	}
}

func (s *userService) Register(ctx context.Context, userId string) error {
	if err := s.backend.RegisterUser(ctx, userId); err != nil {
		return err
	}

	s.logger.Info("UserService", "User registered", map[string]interface{}{"user_id": userId})
	go s.entitlement.Refresh(context.Background(), userId)
	return nil
}

func (s *userService) Entitlement(userId string) *dto.EntitlementResponse {
	return s.entitlement.Get(userId)
}
