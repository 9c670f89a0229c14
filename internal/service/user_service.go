package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"sync"
	"time"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/domain"
	"github.com/bilawal506/online-mart/internal/dto"
	"github.com/bilawal506/online-mart/internal/repository"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/bilawal506/online-mart/pkg/utils"
	"github.com/rs/zerolog/log"
)

const resetPasswordSubject = "Password Reset Request"

type UserServiceImpl struct {
	repo   repository.UserRepository
	mailer utils.Mailer
	config config.Config

	checkPassword func(hashedPassword string, password string) bool

	mails sync.WaitGroup
}

func CreateNewUserService(repo repository.UserRepository, mailer utils.Mailer, config config.Config) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, mailer: mailer, config: config, checkPassword: utils.CheckPassword}
}

func (s *UserServiceImpl) Signup(ctx context.Context, data dto.UserRequest) (res dto.UserResponse, err error) {
	hash, err := utils.HashPassword(data.Password)
	if err != nil {
		return res, fmt.Errorf("hash password: %w", err)
	}

	role := data.Role
	if role == "" {
		role = domain.RoleUser
	}

	user, err := s.repo.AddUser(ctx, domain.User{
		ID:             data.ID,
		Username:       data.Username,
		HashedPassword: hash,
		PhoneNumber:    data.PhoneNumber,
		Email:          data.Email,
		Role:           role,
	})
	if err != nil {
		return res, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *UserServiceImpl) Login(ctx context.Context, data dto.TokenRequest) (res dto.LoginResponse, err error) {
	user, err := s.repo.GetUserByUsername(ctx, data.Username)
	if err != nil && !errors.Is(err, errs.ErrUserNotFound) {
		return res, err
	}

	// Unknown users still pay for a bcrypt comparison.
	found := err == nil
	hash := user.HashedPassword
	if !found {
		hash = utils.UnknownUserHash()
	}

	if !s.checkPassword(hash, data.Password) || !found {
		log.Ctx(ctx).Info().Str("component", "Login").Str("username", data.Username).Bool("known_user", found).Msg("login rejected")
		return res, errs.ErrInvalidCredentials
	}

	ttl := time.Duration(s.config.JWTConfig.AccessTokenExpireMinutes) * time.Minute
	token, err := utils.CreateAccessToken(user.Username, user.Role, s.config.JWTConfig.JWTSecret, ttl)
	if err != nil {
		return res, fmt.Errorf("sign access token: %w", err)
	}

	res.AccessToken = token
	res.TokenType = "bearer"

	return res, nil
}

// GetCurrentUser loads the account behind a token. A token whose user was
// deleted no longer authenticates.
func (s *UserServiceImpl) GetCurrentUser(ctx context.Context, username string) (res dto.UserResponse, err error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, errs.ErrUserNotFound) {
		return res, errs.ErrNotLoggedIn
	}
	if err != nil {
		return res, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *UserServiceImpl) GetUsers(ctx context.Context, filter pkgdto.Filter) (res []dto.UserResponse, err error) {
	users, err := s.repo.GetUsers(ctx, filter)
	if err != nil {
		return nil, err
	}

	res = make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, dto.NewUserResponse(u))
	}

	return res, nil
}

// ForgotPassword mails a reset link in the background and returns as soon as
// the address is known to belong to a user.
func (s *UserServiceImpl) ForgotPassword(ctx context.Context, data dto.ForgotPasswordRequest) (err error) {
	user, err := s.repo.GetUserByEmail(ctx, data.Email)
	if err != nil {
		return err
	}

	ttl := time.Duration(s.config.JWTConfig.ResetTokenExpireMinutes) * time.Minute
	token, err := utils.CreateResetToken(user.Email, s.config.JWTConfig.JWTSecret, ttl)
	if err != nil {
		return fmt.Errorf("sign reset token: %w", err)
	}

	resetURL := s.config.ResetPasswordURL + "?token=" + url.QueryEscape(token)
	body := fmt.Sprintf(`Please use the following link to reset your password: <a href="%s">%s</a>`, html.EscapeString(resetURL), html.EscapeString(resetURL))

	mailCtx := context.WithoutCancel(ctx)
	s.mails.Add(1)
	go func() {
		defer s.mails.Done()

		if err := s.mailer.Send(mailCtx, user.Email, resetPasswordSubject, body); err != nil {
			log.Ctx(mailCtx).Error().Err(err).Str("component", "ForgotPassword").Msg("failed to send reset email")
		}
	}()

	return nil
}

func (s *UserServiceImpl) ResetPassword(ctx context.Context, data dto.ResetPasswordRequest) (err error) {
	email, err := utils.ParseResetToken(data.Token, s.config.JWTConfig.JWTSecret)
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(data.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, email, hash)
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, id int64) (res dto.UserResponse, err error) {
	user, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return res, err
	}

	return dto.NewUserResponse(user), nil
}

// Wait blocks until every reset email started so far has been handed to the
// mail server or failed.
func (s *UserServiceImpl) Wait() {
	s.mails.Wait()
}
