package handlers

import (
	"net/http"

	"catalog-server/models"

	"github.com/gin-gonic/gin"
)

type categoryRequest struct {
	Name   *string `json:"name" form:"name" binding:"required,filled,max=255"`
	Status *string `json:"status" form:"status" binding:"omitempty,oneof=active inactive"`
}

// validateCategory binds the request and applies the upload and uniqueness rules.
// exceptID excludes the category being updated from the name check.
func (h *Handler) validateCategory(c *gin.Context, exceptID uint) (*categoryRequest, *upload, error) {
	ctx := c.Request.Context()

	var req categoryRequest
	verr := bind(c, &req)
	img := h.imageUpload(c, "image", false, verr)

	err := checkUnique(verr, "name", req.Name, func(name string) (bool, error) {
		return h.categories.NameTaken(ctx, name, exceptID)
	})
	if err != nil {
		return nil, nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, nil, err
	}
	return &req, img, nil
}

// ListCategories returns active categories with their brands.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.categories.ListActive(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to retrieve categories", err)
		return
	}
	respond(c, http.StatusOK, "Categories retrieved successfully", categories)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	ctx := c.Request.Context()

	req, img, err := h.validateCategory(c, 0)
	if err != nil {
		h.fail(c, "Failed to store category", err)
		return
	}

	category := models.Category{Name: *req.Name, Status: models.StatusActive}
	if req.Status != nil {
		category.Status = *req.Status
	}

	if img != nil {
		path, err := h.store(ctx, dirCategories, img)
		if err != nil {
			h.fail(c, "Failed to store category", err)
			return
		}
		category.Image = &path
	}

	if err := h.categories.Create(ctx, &category); err != nil {
		if category.Image != nil {
			h.discard(ctx, *category.Image)
		}
		h.fail(c, "Failed to store category", err)
		return
	}

	respond(c, http.StatusCreated, "Category stored successfully", category)
}

func (h *Handler) GetCategory(c *gin.Context) {
	id, err := pathID(c, "id", "Category")
	if err != nil {
		h.fail(c, "Failed to retrieve category", err)
		return
	}

	category, err := h.categories.FindWithBrands(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to retrieve category", missing(err, "Category"))
		return
	}
	respond(c, http.StatusOK, "Category retrieved successfully", category)
}

// UpdateCategory replaces the name and optionally the status and image.
// The previous image is removed only once the new row is saved.
func (h *Handler) UpdateCategory(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "Category")
	if err != nil {
		h.fail(c, "Failed to update category", err)
		return
	}
	category, err := h.categories.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to update category", missing(err, "Category"))
		return
	}

	req, img, err := h.validateCategory(c, id)
	if err != nil {
		h.fail(c, "Failed to update category", err)
		return
	}

	previous := category.Image
	category.Name = *req.Name
	if req.Status != nil {
		category.Status = *req.Status
	}

	var stored string
	if img != nil {
		stored, err = h.store(ctx, dirCategories, img)
		if err != nil {
			h.fail(c, "Failed to update category", err)
			return
		}
		category.Image = &stored
	}

	if err := h.categories.Save(ctx, category); err != nil {
		h.discard(ctx, stored)
		h.fail(c, "Failed to update category", err)
		return
	}
	if stored != "" && previous != nil {
		h.discard(ctx, *previous)
	}

	respond(c, http.StatusOK, "Category updated successfully", category)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "Category")
	if err != nil {
		h.fail(c, "Failed to delete category", err)
		return
	}
	category, err := h.categories.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to delete category", missing(err, "Category"))
		return
	}

	n, err := h.categories.Dependents(ctx, id)
	if err != nil {
		h.fail(c, "Failed to delete category", err)
		return
	}
	if n > 0 {
		h.fail(c, "Failed to delete category", &ConflictError{Message: "Cannot delete category. It has associated brands or products."})
		return
	}

	if err := h.categories.Delete(ctx, id); err != nil {
		h.fail(c, "Failed to delete category", missing(err, "Category"))
		return
	}
	if category.Image != nil {
		h.discard(ctx, *category.Image)
	}

	respond(c, http.StatusOK, "Category deleted successfully", nil)
}

func (h *Handler) SearchCategories(c *gin.Context) {
	categories, err := h.categories.Search(c.Request.Context(), c.Param("term"))
	if err != nil {
		h.fail(c, "Failed to search categories", err)
		return
	}
	respond(c, http.StatusOK, "Categories retrieved successfully", categories)
}
