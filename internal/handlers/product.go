package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pinvent/apiserver/internal/apperr"
	"github.com/pinvent/apiserver/internal/services"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20

	formFieldImage       = "image"
	formFieldName        = "name"
	formFieldSKU         = "sku"
	formFieldCategory    = "category"
	formFieldQuantity    = "quantity"
	formFieldPrice       = "price"
	formFieldDescription = "description"
)

// Accepted image MIME types. Anything else is silently ignored, as if no
// file had been attached.
var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

// ProductHandler provides HTTP handlers for products.
type ProductHandler struct {
	products   *services.ProductService
	uploadsDir string
	dev        bool
}

// NewProductHandler constructs a handler with the provided dependencies.
func NewProductHandler(products *services.ProductService, uploadsDir string, dev bool) *ProductHandler {
	return &ProductHandler{
		products:   products,
		uploadsDir: uploadsDir,
		dev:        dev,
	}
}

// ProductRouter registers product routes on the given router. Every
// route requires a session.
func ProductRouter(
	r chi.Router,
	products *services.ProductService,
	authMiddleware func(http.Handler) http.Handler,
	uploadsDir string,
	dev bool,
) {
	handler := NewProductHandler(products, uploadsDir, dev)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateProduct)
	r.Get("/", handler.ListProducts)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.Patch("/", handler.UpdateProduct)
		r.Delete("/", handler.DeleteProduct)
	})
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	params, upload, err := h.parseProductForm(r)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	product, err := h.products.Create(r.Context(), userID, params, upload)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	products, err := h.products.List(r.Context(), userID)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	productID, err := parseProductID(r)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	product, err := h.products.Get(r.Context(), userID, productID)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	productID, err := parseProductID(r)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	params, upload, err := h.parseProductForm(r)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	product, err := h.products.Update(r.Context(), userID, productID, params, upload)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	productID, err := parseProductID(r)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	if err := h.products.Delete(r.Context(), userID, productID); err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted."})
}

func parseProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, apperr.New(apperr.KindValidation, "Invalid product id")
	}
	return id, nil
}

func (h *ProductHandler) parseProductForm(r *http.Request) (services.ProductParams, *services.Upload, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return services.ProductParams{}, nil, apperr.New(apperr.KindValidation, "Invalid multipart form")
	}

	name := strings.TrimSpace(r.FormValue(formFieldName))
	category := strings.TrimSpace(r.FormValue(formFieldCategory))
	rawQuantity := strings.TrimSpace(r.FormValue(formFieldQuantity))
	rawPrice := strings.TrimSpace(r.FormValue(formFieldPrice))
	description := strings.TrimSpace(r.FormValue(formFieldDescription))
	if name == "" || category == "" || rawQuantity == "" || rawPrice == "" || description == "" {
		return services.ProductParams{}, nil, apperr.New(apperr.KindValidation, "Please fill in all fields")
	}

	quantity, err := strconv.ParseInt(rawQuantity, 10, 64)
	if err != nil || quantity < 0 {
		return services.ProductParams{}, nil, apperr.New(apperr.KindValidation, "Invalid quantity")
	}

	price, err := strconv.ParseFloat(rawPrice, 64)
	if err != nil || price < 0 {
		return services.ProductParams{}, nil, apperr.New(apperr.KindValidation, "Invalid price")
	}

	upload, err := h.parseImageFile(r)
	if err != nil {
		return services.ProductParams{}, nil, err
	}

	return services.ProductParams{
		Name:        name,
		SKU:         strings.TrimSpace(r.FormValue(formFieldSKU)),
		Category:    category,
		Quantity:    quantity,
		Price:       price,
		Description: description,
	}, upload, nil
}

// parseImageFile reads the optional image field and stages a copy in the
// uploads dir, which is served at /uploads/. Files that are not
// png/jpg/jpeg are ignored entirely.
func (h *ProductHandler) parseImageFile(r *http.Request) (*services.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[formFieldImage]
	if len(files) == 0 {
		return nil, nil
	}

	fileHeader := files[0]
	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return nil, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "Image could not be uploaded", err)
	}
	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}

	stagedName := time.Now().UTC().Format("2006-01-02T15-04-05.000Z") + "-" + filepath.Base(fileHeader.Filename)
	if err := os.WriteFile(filepath.Join(h.uploadsDir, stagedName), data, 0o644); err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "Image could not be uploaded", err)
	}

	return &services.Upload{
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "Failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, apperr.New(apperr.KindValidation, "Uploaded file too large")
	}
	return data, nil
}
