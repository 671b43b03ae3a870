// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/nz-market/internal/config"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
)

const (
	statusBanned    = "BANNED"
	stateCacheTTL   = 30 * time.Second
	stateCacheKey   = "auth:state:"
	mailSendTimeout = 15 * time.Second
)

type UserInfo struct {
	ID            string
	Email         string
	DisplayName   string
	Phone         *string
	PasswordHash  string
	Role          string
	Status        string
	EmailVerified bool
	TokenVersion  int
	CreatedAt     time.Time
}

func (u *UserInfo) IsBanned() bool {
	return u.Status == statusBanned
}

type NewUser struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Phone        *string
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, in NewUser) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	MarkEmailVerified(ctx context.Context, userID string) error
}

type Mailer interface {
	SendVerification(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

type ServiceConfig struct {
	Repo   Repository
	JWT    *JWTManager
	Users  UserProvider
	Mailer Mailer
	// Redis caches per-user auth state for access-token checks. Nil
	// disables the cache and every request reads the database.
	Redis  *redis.Client
	Auth   config.AuthConfig
	Logger *slog.Logger
}

type Service struct {
	repo   Repository
	jwt    *JWTManager
	users  UserProvider
	mailer Mailer
	redis  *redis.Client
	cfg    config.AuthConfig
	logger *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:   cfg.Repo,
		jwt:    cfg.JWT,
		users:  cfg.Users,
		mailer: cfg.Mailer,
		redis:  cfg.Redis,
		cfg:    cfg.Auth,
		logger: logger,
	}
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if user.IsBanned() {
		return nil, bannedError()
	}

	if s.cfg.RequireVerifiedEmail && !user.EmailVerified {
		return nil, core.ForbiddenError("email address is not verified")
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	return s.createAuthResponse(ctx, user, userAgent, ipAddress, "")
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, NewUser{
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		Phone:        req.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.sendAccountEmail(ctx, user, PurposeVerifyEmail, s.cfg.VerificationTokenTTL)

	return s.createAuthResponse(ctx, user, userAgent, ipAddress, "")
}

// Refresh rotates a refresh token. The old token is claimed with a
// conditional update before the new one is minted, so two concurrent
// refreshes with the same token cannot both succeed.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if storedToken.IsUsed {
		s.revokeFamily(ctx, storedToken)
		return nil, ErrTokenReuse
	}

	if !storedToken.IsValid() {
		if storedToken.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, storedToken.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.IsBanned() {
		//nolint:errcheck // the request fails either way
		_ = s.repo.RevokeByFamilyID(ctx, storedToken.FamilyID)
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
	}

	newTokenID := uuid.New().String()
	if err := s.repo.MarkAsUsed(ctx, storedToken.ID, newTokenID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.revokeFamily(ctx, storedToken)
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("rotate token: %w", err)
	}

	return s.createAuthResponseWithID(
		ctx,
		user,
		userAgent,
		ipAddress,
		storedToken.FamilyID,
		newTokenID,
	)
}

func (s *Service) revokeFamily(ctx context.Context, t *RefreshToken) {
	s.logger.WarnContext(ctx, "refresh token reuse detected",
		"user_id", t.UserID,
		"family_id", t.FamilyID,
	)
	//nolint:errcheck // security revocation continues regardless
	_ = s.repo.RevokeByFamilyID(ctx, t.FamilyID)
}

func (s *Service) Logout(
	ctx context.Context,
	refreshToken, userID string,
) error {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find token: %w", err)
	}

	if storedToken.UserID != userID {
		return fmt.Errorf("cannot revoke another user's token: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, storedToken.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

// LogoutAll revokes every refresh token and bumps token_version, which
// invalidates every outstanding access token on the next request.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	s.InvalidateUser(ctx, userID)
	return nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.repo.ConsumeAccountToken(
		ctx,
		core.HashToken(token),
		PurposeVerifyEmail,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.BadRequestError("invalid or expired token")
		}
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	return nil
}

// ForgotPassword never reveals whether the address is registered.
// Unknown and banned accounts are silently skipped.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	if user.IsBanned() {
		return nil
	}

	if err := s.repo.InvalidateAccountTokens(ctx, user.ID, PurposeResetPassword); err != nil {
		return err
	}

	s.sendAccountEmail(ctx, user, PurposeResetPassword, s.cfg.ResetTokenTTL)
	return nil
}

func (s *Service) ResetPassword(
	ctx context.Context,
	token, newPassword string,
) error {
	userID, err := s.repo.ConsumeAccountToken(
		ctx,
		core.HashToken(token),
		PurposeResetPassword,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.BadRequestError("invalid or expired token")
		}
		return err
	}

	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordWithRehash(
		currentPassword,
		user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	hash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.LogoutAll(ctx, userID)
}

// PurgeExpired removes long-expired refresh and account tokens.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	token, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if token.UserID != userID {
		return fmt.Errorf("cannot revoke another user's session: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

type authState struct {
	Role         string `json:"role"`
	Status       string `json:"status"`
	TokenVersion int    `json:"token_version"`
}

// VerifyAccessToken checks the signature and then the subject's current
// state, so bans and token_version bumps apply to access tokens that
// were issued before them.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	state, err := s.loadState(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, err
	}

	if state.Status == statusBanned {
		return nil, bannedError()
	}

	if claims.TokenVersion < state.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	claims.Role = state.Role
	return claims, nil
}

func (s *Service) loadState(ctx context.Context, userID string) (*authState, error) {
	key := stateCacheKey + userID

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var st authState
			if json.Unmarshal(raw, &st) == nil {
				return &st, nil
			}
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &authState{
		Role:         user.Role,
		Status:       user.Status,
		TokenVersion: user.TokenVersion,
	}

	if s.redis != nil {
		if raw, err := json.Marshal(st); err == nil {
			if err := s.redis.Set(ctx, key, raw, stateCacheTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "cache auth state", "error", err)
			}
		}
	}

	return st, nil
}

// InvalidateUser drops the cached auth state. Callers that change a
// user's role, status or token_version call it after committing.
func (s *Service) InvalidateUser(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, stateCacheKey+userID).Err(); err != nil {
		s.logger.WarnContext(ctx, "invalidate auth state",
			"user_id", userID,
			"error", err,
		)
	}
}

// sendAccountEmail issues a one-shot token and mails it. Delivery is
// best effort: a failure is logged and the caller's request succeeds.
func (s *Service) sendAccountEmail(
	ctx context.Context,
	user *UserInfo,
	purpose string,
	ttl time.Duration,
) {
	plain, hash, err := core.NewHashedToken()
	if err != nil {
		s.logger.ErrorContext(ctx, "generate account token", "error", err)
		return
	}

	token := &AccountToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Purpose:   purpose,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.repo.CreateAccountToken(ctx, token); err != nil {
		s.logger.ErrorContext(ctx, "store account token",
			"purpose", purpose,
			"error", err,
		)
		return
	}

	if s.mailer == nil {
		return
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailSendTimeout)
	defer cancel()

	switch purpose {
	case PurposeVerifyEmail:
		err = s.mailer.SendVerification(mailCtx, user.Email, user.DisplayName, plain)
	case PurposeResetPassword:
		err = s.mailer.SendPasswordReset(mailCtx, user.Email, user.DisplayName, plain)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "account email not sent",
			"purpose", purpose,
			"user_id", user.ID,
			"error", err,
		)
	}
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID string,
) (*AuthResponse, error) {
	return s.createAuthResponseWithID(
		ctx, user, userAgent, ipAddress, familyID, uuid.New().String(),
	)
}

func (s *Service) createAuthResponseWithID(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID, tokenID string,
) (*AuthResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	refreshTokenEntity := &RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if err := s.repo.Create(ctx, refreshTokenEntity); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	ttl := s.jwt.AccessTTL()
	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl / time.Second),
			ExpiresAt:    time.Now().Add(ttl),
		},
	}, nil
}

func bannedError() *core.AppError {
	return core.NewAppError(
		core.ErrUnauthorized,
		"account is banned",
		http.StatusUnauthorized,
		"ACCOUNT_BANNED",
	)
}

var _ middleware.TokenVerifier = (*Service)(nil)
