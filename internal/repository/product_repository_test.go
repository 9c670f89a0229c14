package repository

import (
	"context"
	"testing"

	"github.com/bilawal506/online-mart/internal/domain"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/stretchr/testify/suite"
)

type ProductRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	repo *ProductRepositoryImpl
}

func (s *ProductRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = CreateNewProductRepository(newTestDB(s.T()))
}

func (s *ProductRepositorySuite) seed(products ...domain.Product) {
	for _, p := range products {
		s.Require().NoError(s.repo.UpsertProduct(s.ctx, p))
	}
}

func (s *ProductRepositorySuite) TestUpsertIsIdempotent() {
	p := domain.Product{ID: 1, Name: "Laptop", Price: 1000, Description: "A laptop", Category: "electronics"}
	s.seed(p, p)

	products, err := s.repo.GetProducts(s.ctx, pkgdto.Filter{})
	s.Require().NoError(err)
	s.Len(products, 1)
	s.Equal(p, products[0])
}

func (s *ProductRepositorySuite) TestUpsertOverwrites() {
	s.seed(
		domain.Product{ID: 1, Name: "Laptop", Price: 1000, Category: "electronics"},
		domain.Product{ID: 1, Name: "Laptop Pro", Price: 1500, Category: "electronics"},
	)

	p, err := s.repo.GetProductByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("Laptop Pro", p.Name)
	s.Equal(int64(1500), p.Price)
}

func (s *ProductRepositorySuite) TestGetProductByIDNotFound() {
	_, err := s.repo.GetProductByID(s.ctx, 42)
	s.ErrorIs(err, errs.ErrProductNotFound)
}

func (s *ProductRepositorySuite) TestGetProductsPagination() {
	s.seed(
		domain.Product{ID: 1, Name: "A", Category: "c"},
		domain.Product{ID: 2, Name: "B", Category: "c"},
		domain.Product{ID: 3, Name: "C", Category: "c"},
	)

	testCases := []struct {
		Name     string
		Filter   pkgdto.Filter
		Expected []int64
	}{
		{"No pagination", pkgdto.Filter{}, []int64{1, 2, 3}},
		{"Limit only", pkgdto.Filter{Limit: 2}, []int64{1, 2}},
		{"First page", pkgdto.Filter{Limit: 2, Page: 1}, []int64{1, 2}},
		{"Second page", pkgdto.Filter{Limit: 2, Page: 2}, []int64{3}},
		{"Past the end", pkgdto.Filter{Limit: 2, Page: 5}, []int64{}},
	}

	for _, tc := range testCases {
		s.Run(tc.Name, func() {
			products, err := s.repo.GetProducts(s.ctx, tc.Filter)
			s.Require().NoError(err)

			ids := []int64{}
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			s.Equal(tc.Expected, ids)
		})
	}
}

func (s *ProductRepositorySuite) TestGetProductsByField() {
	s.seed(
		domain.Product{ID: 1, Name: "Laptop", Category: "electronics"},
		domain.Product{ID: 2, Name: "Desk", Category: "furniture"},
		domain.Product{ID: 3, Name: "Phone", Category: "electronics"},
	)

	products, err := s.repo.GetProductsByField(s.ctx, "category", "electronics")
	s.Require().NoError(err)
	s.Len(products, 2)

	products, err = s.repo.GetProductsByField(s.ctx, "category", "toys")
	s.Require().NoError(err)
	s.NotNil(products)
	s.Empty(products)

	_, err = s.repo.GetProductsByField(s.ctx, "price; DROP TABLE products", "1")
	s.ErrorIs(err, errs.ErrClient)
}

func (s *ProductRepositorySuite) TestUpdateProduct() {
	s.seed(domain.Product{ID: 1, Name: "Laptop", Price: 1000, Category: "electronics"})

	err := s.repo.UpdateProduct(s.ctx, domain.Product{ID: 1, Name: "Laptop", Price: 900, Category: "sale"})
	s.Require().NoError(err)

	p, err := s.repo.GetProductByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(int64(900), p.Price)
	s.Equal("sale", p.Category)

	err = s.repo.UpdateProduct(s.ctx, domain.Product{ID: 2, Name: "Ghost"})
	s.ErrorIs(err, errs.ErrProductNotFound)
}

func (s *ProductRepositorySuite) TestDeleteProduct() {
	p := domain.Product{ID: 1, Name: "Laptop", Price: 1000, Category: "electronics"}
	s.seed(p)

	deleted, err := s.repo.DeleteProduct(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(p, deleted)

	_, err = s.repo.DeleteProduct(s.ctx, 1)
	s.ErrorIs(err, errs.ErrProductNotFound)
}

func TestProductRepositorySuite(t *testing.T) {
	suite.Run(t, new(ProductRepositorySuite))
}
