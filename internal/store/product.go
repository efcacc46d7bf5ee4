package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/pinvent/apiserver/types"
)

// ProductRepository handles persistence for products. The image
// descriptor is stored as a JSON column, NULL when no image was uploaded.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ListByUser(ctx context.Context, userID int) ([]types.Product, error) {
	const query = `
		SELECT id, user_id, name, sku, category, quantity, price, description, image, created_at, updated_at
		FROM products
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]types.Product, 0)
	for rows.Next() {
		var product types.Product
		var imageJSON []byte
		if err := rows.Scan(
			&product.ID,
			&product.UserID,
			&product.Name,
			&product.SKU,
			&product.Category,
			&product.Quantity,
			&product.Price,
			&product.Description,
			&imageJSON,
			&product.CreatedAt,
			&product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(imageJSON) > 0 {
			_ = json.Unmarshal(imageJSON, &product.Image)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id int) (types.Product, error) {
	const query = `
		SELECT id, user_id, name, sku, category, quantity, price, description, image, created_at, updated_at
		FROM products
		WHERE id = $1`
	var product types.Product
	var imageJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.UserID,
		&product.Name,
		&product.SKU,
		&product.Category,
		&product.Quantity,
		&product.Price,
		&product.Description,
		&imageJSON,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}

	if len(imageJSON) > 0 {
		_ = json.Unmarshal(imageJSON, &product.Image)
	}
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	imageJSON, err := marshalImage(product.Image)
	if err != nil {
		return types.Product{}, err
	}

	const query = `
		INSERT INTO products (user_id, name, sku, category, quantity, price, description, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		product.UserID,
		product.Name,
		product.SKU,
		product.Category,
		product.Quantity,
		product.Price,
		product.Description,
		imageJSON,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID); err != nil {
		return types.Product{}, err
	}

	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	product.UpdatedAt = time.Now()

	imageJSON, err := marshalImage(product.Image)
	if err != nil {
		return types.Product{}, err
	}

	const query = `
		UPDATE products
		SET name = $1,
			sku = $2,
			category = $3,
			quantity = $4,
			price = $5,
			description = $6,
			image = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		product.Name,
		product.SKU,
		product.Category,
		product.Quantity,
		product.Price,
		product.Description,
		imageJSON,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return types.Product{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Product{}, err
	}
	if affected == 0 {
		return types.Product{}, ErrNotFound
	}

	return product, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM products WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalImage(image *types.Image) ([]byte, error) {
	if image == nil {
		return nil, nil
	}
	return json.Marshal(image)
}
