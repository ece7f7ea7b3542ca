package handlers

import (
	"net/http"

	"catalog-server/models"

	"github.com/gin-gonic/gin"
)

type brandRequest struct {
	Name       *string `json:"name" form:"name" binding:"required,filled,max=255"`
	Status     *string `json:"status" form:"status" binding:"omitempty,oneof=active inactive"`
	CategoryID *uint   `json:"category_id" form:"category_id" binding:"required"`
}

func (h *Handler) validateBrand(c *gin.Context, exceptID uint) (*brandRequest, *upload, error) {
	ctx := c.Request.Context()

	var req brandRequest
	verr := bind(c, &req)
	img := h.imageUpload(c, "image", false, verr)

	err := checkUnique(verr, "name", req.Name, func(name string) (bool, error) {
		return h.brands.NameTaken(ctx, name, exceptID)
	})
	if err != nil {
		return nil, nil, err
	}
	err = checkExists(verr, "category_id", req.CategoryID, func(id uint) (bool, error) {
		return h.categories.Exists(ctx, id)
	})
	if err != nil {
		return nil, nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, nil, err
	}
	return &req, img, nil
}

func (h *Handler) ListBrands(c *gin.Context) {
	brands, err := h.brands.ListActive(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to retrieve brands", err)
		return
	}
	respond(c, http.StatusOK, "Brands retrieved successfully", brands)
}

func (h *Handler) CreateBrand(c *gin.Context) {
	ctx := c.Request.Context()

	req, img, err := h.validateBrand(c, 0)
	if err != nil {
		h.fail(c, "Failed to store brand", err)
		return
	}

	brand := models.Brand{Name: *req.Name, Status: models.StatusActive, CategoryID: *req.CategoryID}
	if req.Status != nil {
		brand.Status = *req.Status
	}

	if img != nil {
		path, err := h.store(ctx, dirBrands, img)
		if err != nil {
			h.fail(c, "Failed to store brand", err)
			return
		}
		brand.Image = &path
	}

	if err := h.brands.Create(ctx, &brand); err != nil {
		if brand.Image != nil {
			h.discard(ctx, *brand.Image)
		}
		h.fail(c, "Failed to store brand", err)
		return
	}

	created, err := h.brands.Find(ctx, brand.ID)
	if err != nil {
		h.fail(c, "Failed to store brand", err)
		return
	}
	respond(c, http.StatusCreated, "Brand stored successfully", created)
}

func (h *Handler) GetBrand(c *gin.Context) {
	id, err := pathID(c, "id", "Brand")
	if err != nil {
		h.fail(c, "Failed to retrieve brand", err)
		return
	}

	brand, err := h.brands.Find(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to retrieve brand", missing(err, "Brand"))
		return
	}
	respond(c, http.StatusOK, "Brand retrieved successfully", brand)
}

// UpdateBrand requires name and category_id; status and image keep their
// stored values when left out.
func (h *Handler) UpdateBrand(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "Brand")
	if err != nil {
		h.fail(c, "Failed to update brand", err)
		return
	}
	brand, err := h.brands.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to update brand", missing(err, "Brand"))
		return
	}

	req, img, err := h.validateBrand(c, id)
	if err != nil {
		h.fail(c, "Failed to update brand", err)
		return
	}

	previous := brand.Image
	brand.Name = *req.Name
	brand.CategoryID = *req.CategoryID
	brand.Category = nil
	if req.Status != nil {
		brand.Status = *req.Status
	}

	var stored string
	if img != nil {
		stored, err = h.store(ctx, dirBrands, img)
		if err != nil {
			h.fail(c, "Failed to update brand", err)
			return
		}
		brand.Image = &stored
	}

	if err := h.brands.Save(ctx, brand); err != nil {
		h.discard(ctx, stored)
		h.fail(c, "Failed to update brand", err)
		return
	}
	if stored != "" && previous != nil {
		h.discard(ctx, *previous)
	}

	updated, err := h.brands.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to update brand", err)
		return
	}
	respond(c, http.StatusOK, "Brand updated successfully", updated)
}

func (h *Handler) DeleteBrand(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "Brand")
	if err != nil {
		h.fail(c, "Failed to delete brand", err)
		return
	}
	brand, err := h.brands.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to delete brand", missing(err, "Brand"))
		return
	}

	n, err := h.brands.Dependents(ctx, id)
	if err != nil {
		h.fail(c, "Failed to delete brand", err)
		return
	}
	if n > 0 {
		h.fail(c, "Failed to delete brand", &ConflictError{Message: "Cannot delete brand. It has associated products."})
		return
	}

	if err := h.brands.Delete(ctx, id); err != nil {
		h.fail(c, "Failed to delete brand", missing(err, "Brand"))
		return
	}
	if brand.Image != nil {
		h.discard(ctx, *brand.Image)
	}

	respond(c, http.StatusOK, "Brand deleted successfully", nil)
}

func (h *Handler) SearchBrands(c *gin.Context) {
	brands, err := h.brands.Search(c.Request.Context(), c.Param("term"))
	if err != nil {
		h.fail(c, "Failed to search brands", err)
		return
	}
	respond(c, http.StatusOK, "Brands retrieved successfully", brands)
}
