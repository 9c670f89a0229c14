package service

import (
	"context"
	"strconv"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/domain"
	"github.com/bilawal506/online-mart/internal/dto"
	"github.com/bilawal506/online-mart/internal/repository"
	"github.com/bilawal506/online-mart/internal/wire"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/rs/zerolog/log"
)

type ProductRepository interface {
	repository.ProductReader
	repository.ProductMutator
}

type ProductServiceImpl struct {
	repo   ProductRepository
	writer ProductWriter
	topic  string
}

func CreateNewProductService(repo ProductRepository, writer ProductWriter, conf config.KafkaConfig) *ProductServiceImpl {
	return &ProductServiceImpl{repo: repo, writer: writer, topic: conf.BrokerTopic}
}

// AddProduct returns once the broker acknowledged the CREATE event. The product
// is not readable until the consumer stored it.
func (s *ProductServiceImpl) AddProduct(ctx context.Context, data dto.ProductRequest) (err error) {
	product := domain.Product{
		ID:          *data.ID,
		Name:        data.Name,
		Price:       data.Price,
		Description: data.Description,
		Category:    data.Category,
	}

	key := []byte(strconv.FormatInt(product.ID, 10))
	ack, err := s.writer.Send(ctx, s.topic, key, wire.Encode(product, wire.OperationCreate))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddProduct").Int64("id", product.ID).Msg("")
		return err
	}

	log.Ctx(ctx).Info().Str("component", "AddProduct").Int64("id", product.ID).Int("attempts", ack.Attempts).Msg("product event published")

	return nil
}

func (s *ProductServiceImpl) GetProductByID(ctx context.Context, id int64) (res dto.ProductResponse, err error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return res, err
	}

	return dto.NewProductResponse(product), nil
}

func (s *ProductServiceImpl) GetProductsByCategory(ctx context.Context, category string) (res []dto.ProductResponse, err error) {
	products, err := s.repo.GetProductsByField(ctx, "category", category)
	if err != nil {
		return nil, err
	}

	return dto.NewProductResponses(products), nil
}

func (s *ProductServiceImpl) GetProducts(ctx context.Context, filter pkgdto.Filter) (res []dto.ProductResponse, err error) {
	products, err := s.repo.GetProducts(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewProductResponses(products), nil
}

// UpdateProduct applies the non-nil fields of data to the stored product. A
// delete racing with the update surfaces as not found.
func (s *ProductServiceImpl) UpdateProduct(ctx context.Context, data dto.ProductUpdateRequest) (res dto.ProductResponse, err error) {
	product, err := s.repo.GetProductByID(ctx, data.ID)
	if err != nil {
		return res, err
	}

	if data.Name != nil {
		product.Name = *data.Name
	}
	if data.Price != nil {
		product.Price = *data.Price
	}
	if data.Description != nil {
		product.Description = *data.Description
	}
	if data.Category != nil {
		product.Category = *data.Category
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return res, err
	}

	return dto.NewProductResponse(product), nil
}

func (s *ProductServiceImpl) DeleteProduct(ctx context.Context, id int64) (res dto.ProductResponse, err error) {
	product, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return res, err
	}

	return dto.NewProductResponse(product), nil
}
