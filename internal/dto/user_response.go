package dto

import "github.com/bilawal506/online-mart/internal/domain"

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UserResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	PhoneNumber int64  `json:"phone_number"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		Role:        u.Role,
	}
}
