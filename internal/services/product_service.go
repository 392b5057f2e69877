package services

import (
	"strings"

	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/repositories"
	"github.com/b3nzuk3/gameCity-sub001/internal/utils"
	"github.com/b3nzuk3/gameCity-sub001/pkg/apperrors"
)

type CreateProductInput struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Brand       string `json:"brand" validate:"max=100"`
	Category    string `json:"category" validate:"required,max=100"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	PriceCents  int64  `json:"price_cents" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

type UpdateProductInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Brand       *string `json:"brand" validate:"omitempty,max=100"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,gt=0"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active"`
}

type ProductListResponse struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

type ProductService interface {
	Create(input CreateProductInput) (*models.Product, error)
	GetByID(id string) (*models.Product, error)
	GetBySlug(slug string) (*models.Product, error)
	List(filters repositories.ProductFilters, page, pageSize int) (*ProductListResponse, error)
	Update(id string, input UpdateProductInput) (*models.Product, error)
}

type ProductServiceImpl struct {
	productRepo repositories.ProductRepository
}

func NewProductService(productRepo repositories.ProductRepository) ProductService {
	return &ProductServiceImpl{productRepo: productRepo}
}

func (s *ProductServiceImpl) Create(input CreateProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Slug:        utils.Slugify(input.Name),
		Description: input.Description,
		Brand:       input.Brand,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		PriceCents:  input.PriceCents,
		Currency:    "KES",
		Stock:       input.Stock,
		IsActive:    true,
	}

	if err := s.productRepo.Create(product); err != nil {
		if apperrors.Is(err, repositories.ErrSlugTaken) {
			return nil, apperrors.ErrProductSlugTaken
		}
		return nil, apperrors.InternalError(err)
	}
	return product, nil
}

func (s *ProductServiceImpl) GetByID(id string) (*models.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrProductNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return product, nil
}

func (s *ProductServiceImpl) GetBySlug(slug string) (*models.Product, error) {
	product, err := s.productRepo.FindBySlug(slug)
	if err != nil {
		if apperrors.Is(err, repositories.ErrProductNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return product, nil
}

func (s *ProductServiceImpl) List(filters repositories.ProductFilters, page, pageSize int) (*ProductListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	products, total, err := s.productRepo.List(filters, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &ProductListResponse{
		Products: products,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *ProductServiceImpl) Update(id string, input UpdateProductInput) (*models.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrProductNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
		product.Slug = utils.Slugify(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Brand != nil {
		product.Brand = *input.Brand
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}
	if input.PriceCents != nil {
		product.PriceCents = *input.PriceCents
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return product, nil
}
