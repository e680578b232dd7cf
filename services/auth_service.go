package services

import (
	"context"
	"strings"

	"github.com/Dosada05/nations-league/utils"
)

const RoleAdmin = "admin"

type LoginInput struct {
	Password string `json:"password"`
}

// Principal is the authenticated caller a token is issued for.
type Principal struct {
	Subject string
	Role    string
}

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*Principal, error)
}

type authService struct {
	adminPasswordHash string
}

// NewAuthService checks admin logins against a bcrypt hash. An empty hash
// disables login altogether.
func NewAuthService(adminPasswordHash string) AuthService {
	return &authService{adminPasswordHash: strings.TrimSpace(adminPasswordHash)}
}

func (s *authService) Login(_ context.Context, input LoginInput) (*Principal, error) {
	if s.adminPasswordHash == "" {
		return nil, ErrAuthDisabled
	}
	if input.Password == "" || !utils.CheckPasswordHash(input.Password, s.adminPasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &Principal{Subject: RoleAdmin, Role: RoleAdmin}, nil
}
