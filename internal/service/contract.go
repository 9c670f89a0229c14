package service

import (
	"context"

	"github.com/bilawal506/online-mart/internal/dto"
	kafkamq "github.com/bilawal506/online-mart/internal/infrastructure/message-queue/kafka"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/segmentio/kafka-go"
)

// ProductWriter publishes product events. Creating a product only goes through
// here; the row appears once the consumer has applied the event.
type ProductWriter interface {
	Send(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) (kafkamq.Acknowledgment, error)
}

type ProductService interface {
	AddProduct(ctx context.Context, data dto.ProductRequest) (err error)
	GetProductByID(ctx context.Context, id int64) (res dto.ProductResponse, err error)
	GetProductsByCategory(ctx context.Context, category string) (res []dto.ProductResponse, err error)
	GetProducts(ctx context.Context, filter pkgdto.Filter) (res []dto.ProductResponse, err error)
	UpdateProduct(ctx context.Context, data dto.ProductUpdateRequest) (res dto.ProductResponse, err error)
	DeleteProduct(ctx context.Context, id int64) (res dto.ProductResponse, err error)
}

type UserService interface {
	Signup(ctx context.Context, data dto.UserRequest) (res dto.UserResponse, err error)
	Login(ctx context.Context, data dto.TokenRequest) (res dto.LoginResponse, err error)
	GetCurrentUser(ctx context.Context, username string) (res dto.UserResponse, err error)
	GetUsers(ctx context.Context, filter pkgdto.Filter) (res []dto.UserResponse, err error)
	ForgotPassword(ctx context.Context, data dto.ForgotPasswordRequest) (err error)
	ResetPassword(ctx context.Context, data dto.ResetPasswordRequest) (err error)
	DeleteUser(ctx context.Context, id int64) (res dto.UserResponse, err error)
	Wait()
}
