package service

import (
	"context"
	"time"

	"leavedesk/internal/apierror"
	"leavedesk/internal/config"
	"leavedesk/internal/dto"
	"leavedesk/internal/model"
	"leavedesk/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
}

type authService struct {
	accounts repository.AccountRepository
	cfg      *config.Config
}

func NewAuthService(accounts repository.AccountRepository, cfg *config.Config) AuthService {
	return &authService{accounts: accounts, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	acct, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apierror.Authorization("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierror.Authorization("invalid credentials")
	}
	return s.tokenPair(acct)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apierror.Authorization("refresh token invalid or expired")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Authorization("malformed token")
	}
	idFloat, ok := claims["account_id"].(float64)
	if !ok {
		return nil, apierror.Authorization("malformed token")
	}

	acct, err := s.accounts.FindByID(ctx, uint(idFloat))
	if err != nil {
		return nil, apierror.Authorization("account not found")
	}
	return s.tokenPair(acct)
}

func (s *authService) tokenPair(acct *model.Account) (*dto.LoginResponse, error) {
	accessToken, err := s.generateToken(acct, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(acct, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         *toAccountResponse(acct),
	}, nil
}

func (s *authService) generateToken(acct *model.Account, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"account_id": acct.ID,
		"email":      acct.Email,
		"role":       acct.Role,
		"exp":        time.Now().Add(duration).Unix(),
		"iat":        time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
