// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/nz-market/internal/auth"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

// SessionInvalidator drops cached auth state so a role change is seen
// by the next access-token check.
type SessionInvalidator interface {
	InvalidateUser(ctx context.Context, userID string)
}

type Service struct {
	repo     Repository
	sessions SessionInvalidator
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetSessions breaks the construction cycle with auth, which needs this
// service as its user provider.
func (s *Service) SetSessions(sessions SessionInvalidator) {
	s.sessions = sessions
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	in auth.NewUser,
) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: in.PasswordHash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Phone:        in.Phone,
		Role:         RoleUser,
		Status:       StatusActive,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) MarkEmailVerified(ctx context.Context, userID string) error {
	return s.repo.SetEmailVerified(ctx, userID)
}

func (s *Service) GetMe(
	ctx context.Context,
	userID string,
) (*User, *Profile, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

// UpdateMe applies the present fields of req to the user row and the
// profile row in one transaction.
func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateMeRequest,
) (*User, *Profile, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	var (
		user    *User
		profile *Profile
	)

	err := s.repo.WithTx(ctx, func(repo Repository) error {
		var err error
		user, err = repo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		profile, err = repo.GetProfile(ctx, userID)
		if err != nil {
			return err
		}

		if req.DisplayName != nil || req.Phone != nil {
			if req.DisplayName != nil {
				user.DisplayName = strings.TrimSpace(*req.DisplayName)
			}
			if req.Phone != nil {
				user.Phone = req.Phone
				if *req.Phone == "" {
					user.Phone = nil
				}
			}
			if err := repo.Update(ctx, user); err != nil {
				return err
			}
		}

		if applyProfile(profile, req) {
			if err := repo.UpdateProfile(ctx, profile); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

func applyProfile(p *Profile, req UpdateMeRequest) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			changed = true
		}
	}

	set(&p.Bio, req.Bio)
	set(&p.Location, req.Location)
	set(&p.PreferredLang, req.PreferredLang)
	set(&p.WeChat, req.WeChat)
	set(&p.Telegram, req.Telegram)
	set(&p.AvatarURL, req.AvatarURL)

	return changed
}

func (s *Service) GetPublicProfile(
	ctx context.Context,
	id string,
) (*User, *Profile, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if user.IsBanned() {
		return nil, nil, fmt.Errorf("get public profile: %w", core.ErrNotFound)
	}

	profile, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

// UpdateUserRole also bumps token_version so the old role claim in any
// outstanding access token stops working.
func (s *Service) UpdateUserRole(
	ctx context.Context,
	actorID, id, role string,
) (*User, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf(
			"invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	if actorID == id && role != RoleAdmin {
		return nil, fmt.Errorf(
			"admins cannot demote themselves: %w",
			core.ErrInvalidInput,
		)
	}

	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	if s.sessions != nil {
		s.sessions.InvalidateUser(ctx, id)
	}

	return s.repo.GetByID(ctx, id)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Phone:         u.Phone,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		TokenVersion:  u.TokenVersion,
		CreatedAt:     u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
