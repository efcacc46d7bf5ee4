package types

import "time"

// Product represents an inventory item owned by exactly one user. Only the
// owning user may read, update or delete it.
type Product struct {
	// ID is the unique identifier of the product.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the owning user, recorded at creation.
	UserID int `json:"user_id" db:"user_id"`

	// Name is the product's display name.
	Name string `json:"name" db:"name"`

	// SKU is the stock-keeping unit code.
	SKU string `json:"sku" db:"sku"`

	// Category groups related products.
	Category string `json:"category" db:"category"`

	// Quantity is the number of units in stock.
	Quantity int64 `json:"quantity" db:"quantity"`

	// Price is the unit price.
	Price float64 `json:"price" db:"price"`

	// Description is the free-form product description.
	Description string `json:"description" db:"description"`

	// Image describes the uploaded product image, if any. An update
	// without a new upload leaves the stored descriptor untouched.
	Image *Image `json:"image,omitempty" db:"image"`

	// CreatedAt is the timestamp at which the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the product.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Image describes an uploaded product image hosted on the object store.
type Image struct {
	// FileName is the original filename supplied by the client.
	FileName string `json:"file_name" db:"file_name"`

	// FilePath is the public URL of the hosted image.
	FilePath string `json:"file_path" db:"file_path"`

	// FileType is the MIME type of the image.
	FileType string `json:"file_type" db:"file_type"`

	// FileSize is the human-readable size, e.g. "1.25 MB".
	FileSize string `json:"file_size" db:"file_size"`
}
