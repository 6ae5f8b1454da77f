package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/port"
)

var errMissingCredentials = errors.New("carrier credentials are not configured")

type CarrierCredentials struct {
	Email    string
	Password string
}

// CarrierSession holds the shared carrier credential. Expiry is only ever
// detected by a 401 from the caller, there is no refresh timer.
//
// Two callers that both find the store empty will both log in; the later
// token overwrites the earlier one, which is wasteful but harmless.
type CarrierSession struct {
	client port.CarrierClient
	tokens port.TokenStore
	creds  CarrierCredentials
	logger *zap.Logger
}

func NewCarrierSession(client port.CarrierClient, tokens port.TokenStore, creds CarrierCredentials, logger *zap.Logger) *CarrierSession {
	return &CarrierSession{
		client: client,
		tokens: tokens,
		creds:  creds,
		logger: logger,
	}
}

// Token returns the current bearer token, logging in first when there is none.
func (s *CarrierSession) Token(ctx context.Context) (string, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return "", &domain.CarrierAuthError{Err: err}
	}
	if token != "" {
		return token, nil
	}

	if s.creds.Email == "" || s.creds.Password == "" {
		return "", &domain.CarrierAuthError{Err: errMissingCredentials}
	}

	token, err = s.client.Login(ctx, s.creds.Email, s.creds.Password)
	if err != nil {
		s.logger.Error("carrier login failed", zap.Error(err))
		return "", &domain.CarrierAuthError{Err: err}
	}
	if token == "" {
		return "", &domain.CarrierAuthError{Err: errors.New("no token received from carrier")}
	}

	if err := s.tokens.SetToken(ctx, token); err != nil {
		return "", &domain.CarrierAuthError{Err: err}
	}

	s.logger.Info("carrier session authenticated")
	return token, nil
}

// Invalidate drops the token that was just rejected.
func (s *CarrierSession) Invalidate(ctx context.Context, stale string) {
	if err := s.tokens.InvalidateToken(ctx, stale); err != nil {
		s.logger.Warn("carrier token invalidation failed", zap.Error(err))
	}
}
