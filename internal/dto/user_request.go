package dto

type UserRequest struct {
	ID          int64  `json:"id"`
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	PhoneNumber int64  `json:"phone_number" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Role        string `json:"role" validate:"omitempty,oneof=admin user"`
}

// TokenRequest is the OAuth2 password grant form.
type TokenRequest struct {
	GrantType string `form:"grant_type" validate:"omitempty,eq=password"`
	Username  string `form:"username" validate:"required"`
	Password  string `form:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `form:"token" validate:"required"`
	NewPassword string `form:"new_password" validate:"required"`
}
