package repository

import (
	"context"

	"github.com/bilawal506/online-mart/internal/domain"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
)

type ProductReader interface {
	GetProductByID(ctx context.Context, id int64) (data domain.Product, err error)
	GetProducts(ctx context.Context, filter pkgdto.Filter) (data []domain.Product, err error)
	GetProductsByField(ctx context.Context, field string, value string) (data []domain.Product, err error)
}

type ProductMutator interface {
	UpdateProduct(ctx context.Context, data domain.Product) (err error)
	DeleteProduct(ctx context.Context, id int64) (data domain.Product, err error)
}

// ProductStore is what the consumer writes through. Only the consumer inserts
// products, the HTTP path goes through the broker.
type ProductStore interface {
	ProductReader
	ProductMutator
	UpsertProduct(ctx context.Context, data domain.Product) (err error)
}

type UserRepository interface {
	AddUser(ctx context.Context, data domain.User) (res domain.User, err error)
	GetUserByUsername(ctx context.Context, username string) (res domain.User, err error)
	GetUserByEmail(ctx context.Context, email string) (res domain.User, err error)
	GetUserByID(ctx context.Context, id int64) (res domain.User, err error)
	GetUsers(ctx context.Context, filter pkgdto.Filter) (data []domain.User, err error)
	UpdatePassword(ctx context.Context, email string, hashedPassword string) (err error)
	DeleteUser(ctx context.Context, id int64) (res domain.User, err error)
}
