package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/Margay/config"
	"github.com/lshigami/Margay/internal/dto"
	"github.com/lshigami/Margay/internal/model"
	"github.com/lshigami/Margay/internal/repository"
	"github.com/lshigami/Margay/internal/util"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

// AuthService issues and renews the access/refresh token pair.
type AuthService interface {
	Register(req dto.RegisterRequest) (*dto.TokenResponse, error)
	Login(req dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(req dto.RefreshRequest) (*dto.TokenResponse, error)
}

type authService struct {
	userRepo repository.UserRepository
	cfg      *config.Config
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{userRepo: userRepo, cfg: cfg}
}

func (s *authService) Register(req dto.RegisterRequest) (*dto.TokenResponse, error) {
	if _, err := s.userRepo.FindByEmail(req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking existing user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		Email:    req.Email,
		FullName: req.FullName,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(&user); err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Register: failed to create user")
		return nil, fmt.Errorf("database error creating user: %w", err)
	}

	log.Info().Uint("userID", user.ID).Msg("User registered")
	return s.issueTokens(&user)
}

func (s *authService) Login(req dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

func (s *authService) Refresh(req dto.RefreshRequest) (*dto.TokenResponse, error) {
	claims, err := util.ParseJWT(req.Refresh, s.cfg.JWT.Secret)
	if err != nil || claims.TokenType != util.TokenTypeRefresh {
		return nil, ErrInvalidRefresh
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	access, err := util.GenerateJWT(user, util.TokenTypeAccess, s.cfg.JWT.Secret, time.Duration(s.cfg.JWT.AccessExpiryMins)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return &dto.TokenResponse{Access: access}, nil
}

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	access, err := util.GenerateJWT(user, util.TokenTypeAccess, s.cfg.JWT.Secret, time.Duration(s.cfg.JWT.AccessExpiryMins)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := util.GenerateJWT(user, util.TokenTypeRefresh, s.cfg.JWT.Secret, time.Duration(s.cfg.JWT.RefreshExpiryMins)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &dto.TokenResponse{
		Access:  access,
		Refresh: refresh,
		User: &dto.UserResponse{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
		},
	}, nil
}
