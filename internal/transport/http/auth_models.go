package http

import "github.com/njprem/accountd/internal/domain"

type RegisterRequest struct {
	Username string `json:"username" example:"al"`
	Email    string `json:"email" example:"a@b.com"`
	Phone    string `json:"phone" example:"01234567890"`
	Password string `json:"password" example:"Abc123!@"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"a@b.com"`
	Password string `json:"password" example:"Abc123!@"`
}

// UpdateProfileRequest leaves a field untouched when it is absent or null.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (r UpdateProfileRequest) toDomain() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		Username: r.Username,
		Email:    r.Email,
		Phone:    r.Phone,
		Password: r.Password,
	}
}

type ResetPasswordRequest struct {
	Email string `json:"email" example:"a@b.com"`
}

type UpdatePasswordRequest struct {
	NewPassword string `json:"newPassword" example:"Newpass1!"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// LoginResponse is returned by both login routes.
type LoginResponse struct {
	Status   int    `json:"status" example:"1"`
	Success  string `json:"success" example:"Logged Successfully"`
	Token    string `json:"token"`
	Provider string `json:"provider" example:"email"`
}

type ProfileResponse struct {
	Status int                 `json:"status" example:"1"`
	Result *domain.UserProfile `json:"result"`
}
