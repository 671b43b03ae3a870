// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID            string    `db:"id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	DisplayName   string    `db:"display_name"`
	Phone         *string   `db:"phone"`
	Role          string    `db:"role"`
	Status        string    `db:"status"`
	EmailVerified bool      `db:"email_verified"`
	TokenVersion  int       `db:"token_version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsBanned() bool {
	return u.Status == StatusBanned
}

type Profile struct {
	UserID        string    `db:"user_id"`
	Bio           string    `db:"bio"`
	Location      string    `db:"location"`
	PreferredLang string    `db:"preferred_lang"`
	WeChat        string    `db:"wechat"`
	Telegram      string    `db:"telegram"`
	AvatarURL     string    `db:"avatar_url"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	StatusActive = "ACTIVE"
	StatusBanned = "BANNED"
)
