package handlers

import (
	"net/http"

	"catalog-server/models"

	"github.com/gin-gonic/gin"
)

type createProductRequest struct {
	Name        *string     `json:"name" form:"name" binding:"required,filled,max=255"`
	Price       *priceValue `json:"price" form:"price" binding:"required"`
	Description *string     `json:"description" form:"description"`
	Qty         *int        `json:"qty" form:"qty" binding:"required,min=0"`
	Status      *string     `json:"status" form:"status" binding:"omitempty,oneof=active inactive"`
	CategoryID  *uint       `json:"category_id" form:"category_id" binding:"required"`
	BrandID     *uint       `json:"brand_id" form:"brand_id" binding:"required"`
	CreateBy    *uint       `json:"create_by" form:"create_by" binding:"required"`
	Images      []string    `json:"images" form:"images" binding:"omitempty,dive,filled"`
}

// updateProductRequest mirrors createProductRequest with every field
// optional. Fields that are sent are held to the same rules.
type updateProductRequest struct {
	Name        *string     `json:"name" form:"name" binding:"omitempty,filled,max=255"`
	Price       *priceValue `json:"price" form:"price"`
	Description *string     `json:"description" form:"description"`
	Qty         *int        `json:"qty" form:"qty" binding:"omitempty,min=0"`
	Status      *string     `json:"status" form:"status" binding:"omitempty,oneof=active inactive"`
	CategoryID  *uint       `json:"category_id" form:"category_id"`
	BrandID     *uint       `json:"brand_id" form:"brand_id"`
	CreateBy    *uint       `json:"create_by" form:"create_by"`
	Images      []string    `json:"images" form:"images" binding:"omitempty,dive,filled"`
}

// checkProductRefs verifies the price and the three foreign keys.
func (h *Handler) checkProductRefs(c *gin.Context, verr *ValidationError, price *priceValue, categoryID, brandID, createBy *uint) error {
	ctx := c.Request.Context()

	checkPrice(verr, price)
	if err := checkExists(verr, "category_id", categoryID, func(id uint) (bool, error) {
		return h.categories.Exists(ctx, id)
	}); err != nil {
		return err
	}
	if err := checkExists(verr, "brand_id", brandID, func(id uint) (bool, error) {
		return h.brands.Exists(ctx, id)
	}); err != nil {
		return err
	}
	return checkExists(verr, "create_by", createBy, func(id uint) (bool, error) {
		return h.users.Exists(ctx, id)
	})
}

// ListProducts returns active products, newest first, with all relations.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.products.ListActive(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to retrieve products", err)
		return
	}
	respond(c, http.StatusOK, "Products retrieved successfully", products)
}

// CreateProduct writes the product and its image rows in one transaction.
func (h *Handler) CreateProduct(c *gin.Context) {
	ctx := c.Request.Context()

	var req createProductRequest
	verr := bind(c, &req)
	if err := h.checkProductRefs(c, verr, req.Price, req.CategoryID, req.BrandID, req.CreateBy); err != nil {
		h.fail(c, "Failed to store product", err)
		return
	}
	if err := verr.Err(); err != nil {
		h.fail(c, "Failed to store product", err)
		return
	}

	product := models.Product{
		Name:        *req.Name,
		Price:       req.Price.Decimal,
		Description: req.Description,
		Qty:         *req.Qty,
		Status:      models.StatusActive,
		CategoryID:  *req.CategoryID,
		BrandID:     *req.BrandID,
		CreateBy:    *req.CreateBy,
	}
	if req.Status != nil {
		product.Status = *req.Status
	}

	if err := h.products.Create(ctx, &product, req.Images); err != nil {
		h.fail(c, "Failed to store product", err)
		return
	}

	created, err := h.products.Find(ctx, product.ID)
	if err != nil {
		h.fail(c, "Failed to store product", err)
		return
	}
	respond(c, http.StatusCreated, "Product stored successfully", created)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := pathID(c, "id", "Product")
	if err != nil {
		h.fail(c, "Failed to retrieve product", err)
		return
	}

	product, err := h.products.Find(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to retrieve product", missing(err, "Product"))
		return
	}
	respond(c, http.StatusOK, "Product retrieved successfully", product)
}

// UpdateProduct applies the fields that were sent. Images are appended to
// the existing ones.
func (h *Handler) UpdateProduct(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "Product")
	if err != nil {
		h.fail(c, "Failed to update product", err)
		return
	}
	product, err := h.products.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to update product", missing(err, "Product"))
		return
	}

	var req updateProductRequest
	verr := bind(c, &req)
	if err := h.checkProductRefs(c, verr, req.Price, req.CategoryID, req.BrandID, req.CreateBy); err != nil {
		h.fail(c, "Failed to update product", err)
		return
	}
	if err := verr.Err(); err != nil {
		h.fail(c, "Failed to update product", err)
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Price != nil {
		product.Price = req.Price.Decimal
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Qty != nil {
		product.Qty = *req.Qty
	}
	if req.Status != nil {
		product.Status = *req.Status
	}
	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	if req.BrandID != nil {
		product.BrandID = *req.BrandID
	}
	if req.CreateBy != nil {
		product.CreateBy = *req.CreateBy
	}

	if err := h.products.Update(ctx, product, req.Images); err != nil {
		h.fail(c, "Failed to update product", missing(err, "Product"))
		return
	}

	updated, err := h.products.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to update product", err)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully", updated)
}

// DeleteProduct removes the product with its image rows, then the files.
func (h *Handler) DeleteProduct(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "Product")
	if err != nil {
		h.fail(c, "Failed to delete product", err)
		return
	}

	paths, err := h.products.Delete(ctx, id)
	if err != nil {
		h.fail(c, "Failed to delete product", missing(err, "Product"))
		return
	}
	h.discard(ctx, paths...)

	respond(c, http.StatusOK, "Product deleted successfully", nil)
}

// AddProductImage stores an uploaded image and attaches it to the product.
// The file is removed again if the row cannot be written.
func (h *Handler) AddProductImage(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "Product")
	if err != nil {
		h.fail(c, "Failed to add image", err)
		return
	}
	if _, err := h.products.Find(ctx, id); err != nil {
		h.fail(c, "Failed to add image", missing(err, "Product"))
		return
	}

	verr := newValidationError()
	img := h.imageUpload(c, "image", true, verr)
	if err := verr.Err(); err != nil {
		h.fail(c, "Failed to add image", err)
		return
	}

	path, err := h.store(ctx, dirProducts, img)
	if err != nil {
		h.fail(c, "Failed to add image", err)
		return
	}
	if _, err := h.products.AddImage(ctx, id, path); err != nil {
		h.discard(ctx, path)
		h.fail(c, "Failed to add image", missing(err, "Product"))
		return
	}

	product, err := h.products.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to add image", err)
		return
	}
	respond(c, http.StatusCreated, "Image added successfully", product)
}

// DeleteProductImage only matches images that belong to the product in
// the path.
func (h *Handler) DeleteProductImage(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := pathID(c, "id", "Product")
	if err != nil {
		h.fail(c, "Failed to delete image", err)
		return
	}
	imageID, err := pathID(c, "imageId", "Image")
	if err != nil {
		h.fail(c, "Failed to delete image", err)
		return
	}

	image, err := h.products.FindImage(ctx, productID, imageID)
	if err != nil {
		h.fail(c, "Failed to delete image", missing(err, "Image"))
		return
	}
	if err := h.products.DeleteImage(ctx, image); err != nil {
		h.fail(c, "Failed to delete image", missing(err, "Image"))
		return
	}
	h.discard(ctx, image.Image)

	respond(c, http.StatusOK, "Image deleted successfully", nil)
}

func (h *Handler) SearchProducts(c *gin.Context) {
	products, err := h.products.Search(c.Request.Context(), c.Param("term"))
	if err != nil {
		h.fail(c, "Failed to search products", err)
		return
	}
	respond(c, http.StatusOK, "Products retrieved successfully", products)
}
