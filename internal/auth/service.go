package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pliu/chatd/internal/apperr"
	"github.com/pliu/chatd/internal/models"
	"github.com/pliu/chatd/internal/store"
)

const (
	msgBadCredentials    = "Incorrect email or password"
	msgBadRefreshToken   = "Invalid or expired refresh token"
	msgCouldNotValidate  = "Could not validate credentials"
	tokenTypeBearer      = "bearer"
	dummyPasswordForHash = "dummy-password-for-timing"
)

// Service implements login, token refresh and bearer-token resolution.
type Service struct {
	store  store.Store
	tokens *TokenService

	dummyOnce sync.Once
	dummyHash string
}

func NewService(s store.Store, tokens *TokenService) *Service {
	return &Service{store: s, tokens: tokens}
}

// Tokens exposes the underlying token service.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login checks the credentials and issues a token pair bound to the user's id.
// Unknown email and wrong password fail with the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// Spend the same hashing time as a real mismatch.
		VerifyPassword(password, s.dummy())
		return nil, apperr.Unauthorized(msgBadCredentials)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}

	s.recordLogin(ctx, user, password)
	return s.issue(user.ID)
}

// recordLogin upgrades legacy hashes and marks the user online. Failures are logged only.
func (s *Service) recordLogin(ctx context.Context, user *models.User, password string) {
	rehash := NeedsRehash(user.PasswordHash)
	if !rehash && user.IsOnline {
		return
	}

	if rehash {
		hash, err := HashPassword(password)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("user_id", user.ID).Msg("rehash password")
			return
		}
		user.PasswordHash = hash
	}
	user.IsOnline = true

	if err := s.store.UpdateUser(ctx, user); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int("user_id", user.ID).Msg("record login")
	}
}

// Refresh exchanges a refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil || claims.Scope != RefreshScope {
		return nil, apperr.Unauthorized(msgBadRefreshToken)
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, apperr.Unauthorized(msgBadRefreshToken)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return s.issue(user.ID)
}

// CurrentUser resolves an access token to its user.
// Refresh tokens are not accepted as access credentials.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.Decode(accessToken)
	if err != nil || claims.Scope == RefreshScope {
		return nil, apperr.Unauthorized(msgCouldNotValidate)
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, apperr.Unauthorized(msgCouldNotValidate)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized(msgCouldNotValidate)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) issue(userID int) (*models.TokenPair, error) {
	subject := Claims{}
	subject.Subject = strconv.Itoa(userID)

	access, err := s.tokens.CreateAccessToken(subject, 0)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.CreateRefreshToken(subject)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: tokenTypeBearer}, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = HashPassword(dummyPasswordForHash)
	})
	return s.dummyHash
}
