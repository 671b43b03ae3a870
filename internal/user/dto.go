// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type UpdateMeRequest struct {
	DisplayName   *string `json:"display_name,omitempty"   validate:"omitempty,min=2,max=100"`
	Phone         *string `json:"phone,omitempty"          validate:"omitempty,e164"`
	Bio           *string `json:"bio,omitempty"            validate:"omitempty,max=1000"`
	Location      *string `json:"location,omitempty"       validate:"omitempty,max=120"`
	PreferredLang *string `json:"preferred_lang,omitempty" validate:"omitempty,oneof=en zh mi"`
	WeChat        *string `json:"wechat,omitempty"         validate:"omitempty,max=64"`
	Telegram      *string `json:"telegram,omitempty"       validate:"omitempty,max=64"`
	AvatarURL     *string `json:"avatar_url,omitempty"     validate:"omitempty,url,max=2048"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER ADMIN"`
}

type ProfileResponse struct {
	Bio           string `json:"bio"`
	Location      string `json:"location"`
	PreferredLang string `json:"preferred_lang"`
	WeChat        string `json:"wechat"`
	Telegram      string `json:"telegram"`
	AvatarURL     string `json:"avatar_url"`
}

type UserResponse struct {
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	DisplayName   string           `json:"display_name"`
	Phone         *string          `json:"phone,omitempty"`
	Role          string           `json:"role"`
	Status        string           `json:"status"`
	EmailVerified bool             `json:"email_verified"`
	Profile       *ProfileResponse `json:"profile,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// PublicUserResponse is what other users see. Contact details stay private.
type PublicUserResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	Location    string    `json:"location"`
	AvatarURL   string    `json:"avatar_url"`
	MemberSince time.Time `json:"member_since"`
}

type ListUsersParams struct {
	core.PageParams
	Search string
	Role   string
	Status string
}

func ToUserResponse(u *User, p *Profile) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Phone:         u.Phone,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if p != nil {
		resp.Profile = &ProfileResponse{
			Bio:           p.Bio,
			Location:      p.Location,
			PreferredLang: p.PreferredLang,
			WeChat:        p.WeChat,
			Telegram:      p.Telegram,
			AvatarURL:     p.AvatarURL,
		}
	}
	return resp
}

func ToPublicUserResponse(u *User, p *Profile) PublicUserResponse {
	resp := PublicUserResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		MemberSince: u.CreatedAt,
	}
	if p != nil {
		resp.Bio = p.Bio
		resp.Location = p.Location
		resp.AvatarURL = p.AvatarURL
	}
	return resp
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i], nil))
	}
	return responses
}
