package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pinvent/apiserver/internal/apperr"
	"github.com/pinvent/apiserver/internal/storage"
	"github.com/pinvent/apiserver/internal/store"
	"github.com/pinvent/apiserver/types"
)

const fileSizeDecimals = 2

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	ListByUser(ctx context.Context, userID int) ([]types.Product, error)
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	Delete(ctx context.Context, id int) error
}

// ProductService encapsulates product use-cases and the image relay.
type ProductService struct {
	repo    ProductRepository
	storage *storage.Storage
	folder  string
}

func NewProductService(repo ProductRepository, imageStorage *storage.Storage, folder string) *ProductService {
	return &ProductService{
		repo:    repo,
		storage: imageStorage,
		folder:  folder,
	}
}

// ProductParams carries the writable product fields.
type ProductParams struct {
	Name        string
	SKU         string
	Category    string
	Quantity    int64
	Price       float64
	Description string
}

// Upload is a staged image upload awaiting relay to the object store.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Create persists a new product owned by userID, relaying the optional
// image upload to the object store first.
func (s *ProductService) Create(ctx context.Context, userID int, params ProductParams, upload *Upload) (types.Product, error) {
	if err := validateProductParams(params); err != nil {
		return types.Product{}, err
	}

	image, err := s.relayImage(ctx, upload)
	if err != nil {
		return types.Product{}, err
	}

	return s.repo.Create(ctx, types.Product{
		UserID:      userID,
		Name:        params.Name,
		SKU:         params.SKU,
		Category:    params.Category,
		Quantity:    params.Quantity,
		Price:       params.Price,
		Description: params.Description,
		Image:       image,
	})
}

// List returns the user's products, newest first.
func (s *ProductService) List(ctx context.Context, userID int) ([]types.Product, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get loads a product, rejecting access by anyone but the owner.
func (s *ProductService) Get(ctx context.Context, userID, productID int) (types.Product, error) {
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, apperr.New(apperr.KindNotFound, "Product not found")
		}
		return types.Product{}, err
	}
	if product.UserID != userID {
		return types.Product{}, apperr.New(apperr.KindUnauthorized, "User not authorized")
	}
	return product, nil
}

// Update overwrites the product's fields after the same ownership checks
// as Get. Without a new upload the stored image descriptor is retained
// unchanged; with one it is replaced.
func (s *ProductService) Update(ctx context.Context, userID, productID int, params ProductParams, upload *Upload) (types.Product, error) {
	product, err := s.Get(ctx, userID, productID)
	if err != nil {
		return types.Product{}, err
	}

	if err := validateProductParams(params); err != nil {
		return types.Product{}, err
	}

	image := product.Image
	if upload != nil {
		image, err = s.relayImage(ctx, upload)
		if err != nil {
			return types.Product{}, err
		}
	}

	product.Name = params.Name
	product.SKU = params.SKU
	product.Category = params.Category
	product.Quantity = params.Quantity
	product.Price = params.Price
	product.Description = params.Description
	product.Image = image

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Product{}, apperr.New(apperr.KindNotFound, "Product not found")
		}
		return types.Product{}, err
	}
	return updated, nil
}

// Delete removes the product after the same ownership checks as Get.
func (s *ProductService) Delete(ctx context.Context, userID, productID int) error {
	if _, err := s.Get(ctx, userID, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "Product not found")
		}
		return err
	}
	return nil
}

func (s *ProductService) relayImage(ctx context.Context, upload *Upload) (*types.Image, error) {
	if upload == nil {
		return nil, nil
	}
	if s.storage == nil {
		return nil, apperr.New(apperr.KindDependency, "Image could not be uploaded")
	}

	key := fmt.Sprintf("%s/%s%s", s.folder, uuid.NewString(), filepath.Ext(upload.Filename))
	size := int64(len(upload.Data))
	if err := s.storage.Put(ctx, key, bytes.NewReader(upload.Data), size, upload.ContentType); err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "Image could not be uploaded", err)
	}

	return &types.Image{
		FileName: upload.Filename,
		FilePath: s.storage.PublicURL(key),
		FileType: upload.ContentType,
		FileSize: FormatFileSize(size, fileSizeDecimals),
	}, nil
}

func validateProductParams(params ProductParams) error {
	if params.Name == "" || params.Category == "" || params.Description == "" {
		return apperr.New(apperr.KindValidation, "Please fill in all fields")
	}
	return nil
}
