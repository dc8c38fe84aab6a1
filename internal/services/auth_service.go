package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
	"github.com/debriefhub/debriefhub/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	jwtSecret   string
	jwtExpiry   time.Duration
}

type LoginResponse struct {
	Token     string
	ExpiresAt time.Time
	UserID    uuid.UUID
}

type TokenClaims struct {
	UserID    uuid.UUID
	SessionID string
}

func NewAuthService(
	userRepo repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtSecret:   jwtSecret,
		jwtExpiry:   jwtExpiry,
	}
}

func (s *AuthService) Register(ctx context.Context, email, name, password string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return ErrEmailExists
	}
	if err != nil && err != repositories.ErrNotFound {
		return fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == repositories.ErrNotFound {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.New().String()
	expiresAt := time.Now().Add(s.jwtExpiry)
	session := &models.APISession{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.generateToken(user.ID, sessionID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
	}, nil
}

func (s *AuthService) generateToken(userID uuid.UUID, sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"jti": sessionID,
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userIDStr, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	sessionID, ok := claims["jti"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:    userID,
		SessionID: sessionID,
	}, nil
}

// VerifySession checks both the token signature and that the backing session
// still exists, so logout revokes tokens immediately.
func (s *AuthService) VerifySession(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessionRepo.GetByID(ctx, claims.SessionID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return err
	}

	if err := s.sessionRepo.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, tokenString string) error {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return err
	}

	if err := s.sessionRepo.DeleteAllForUser(ctx, claims.UserID); err != nil {
		return fmt.Errorf("failed to logout all sessions: %w", err)
	}

	return nil
}
