package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"huntbooking/internal/domain"
	"huntbooking/internal/repository"
)

type Service struct {
	admins AdminRepository
	tokens TokenIssuer
	cost   int
	now    func() time.Time
}

func NewService(admins AdminRepository, tokens TokenIssuer) *Service {
	return &Service{
		admins: admins,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// Login checks the password and issues an access token carrying the admin role.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	a, err := s.admins.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive {
		return nil, ErrAccountDisabled
	}

	token, err := s.tokens.GenerateToken(a.ID, a.Email, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.admins.TouchLogin(ctx, a.ID, s.now().UTC()); err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Email:       a.Email,
		Name:        a.Name,
	}, nil
}

// CreateAdmin stores a new active admin with a bcrypt password hash.
func (s *Service) CreateAdmin(ctx context.Context, email, name, password string) (*domain.AdminUser, error) {
	if strings.TrimSpace(password) == "" {
		return nil, errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	a := &domain.AdminUser{
		Email:        normalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
