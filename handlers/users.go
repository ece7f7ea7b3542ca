package handlers

import (
	"net/http"
	"strings"

	"catalog-server/models"
	"catalog-server/services"

	"github.com/gin-gonic/gin"
)

type createUserRequest struct {
	FirstName  *string `json:"first_name" form:"first_name" binding:"required,filled,max=255"`
	LastName   *string `json:"last_name" form:"last_name" binding:"required,filled,max=255"`
	Email      *string `json:"email" form:"email" binding:"required,filled,email,max=255"`
	Phone      *string `json:"phone" form:"phone" binding:"required,filled,max=20"`
	Department *string `json:"department" form:"department" binding:"required,filled,max=255"`
	Role       *string `json:"role" form:"role" binding:"required,oneof=user admin manager editor"`
	Status     *string `json:"status" form:"status" binding:"required,oneof=active inactive pending"`
	Password   *string `json:"password" form:"password" binding:"required,min=8"`
}

type updateUserRequest struct {
	FirstName  *string `json:"first_name" form:"first_name" binding:"omitempty,filled,max=255"`
	LastName   *string `json:"last_name" form:"last_name" binding:"omitempty,filled,max=255"`
	Email      *string `json:"email" form:"email" binding:"omitempty,filled,email,max=255"`
	Phone      *string `json:"phone" form:"phone" binding:"omitempty,filled,max=20"`
	Department *string `json:"department" form:"department" binding:"omitempty,filled,max=255"`
	Role       *string `json:"role" form:"role" binding:"omitempty,oneof=user admin manager editor"`
	Status     *string `json:"status" form:"status" binding:"omitempty,oneof=active inactive pending"`
	Password   *string `json:"password" form:"password" binding:"omitempty,min=8"`
}

// userMessages words the user rules the way the back office shows them.
var userMessages = map[string]string{
	"first_name.required": "First name is required",
	"last_name.required":  "Last name is required",
	"email.required":      "Email is required",
	"email.unique":        "This email is already taken",
	"phone.required":      "Phone number is required",
	"department.required": "Department is required",
	"role.required":       "Role is required",
	"status.required":     "Status is required",
}

func (createUserRequest) messages() map[string]string { return userMessages }

func (updateUserRequest) messages() map[string]string { return userMessages }

type userStatusRequest struct {
	Status *string `json:"status" form:"status" binding:"required,oneof=active inactive pending"`
}

// normalizeEmail lowercases and trims so uniqueness is case-insensitive.
func normalizeEmail(email *string) {
	if email != nil {
		*email = strings.ToLower(strings.TrimSpace(*email))
	}
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to retrieve users", err)
		return
	}
	respond(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *Handler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req createUserRequest
	verr := bind(c, &req)
	normalizeEmail(req.Email)
	if err := checkUnique(verr, "email", req.Email, func(email string) (bool, error) {
		return h.users.EmailTaken(ctx, email, 0)
	}); err != nil {
		h.fail(c, "Failed to store user", err)
		return
	}
	if err := verr.Err(); err != nil {
		h.fail(c, "Failed to store user", err)
		return
	}

	hash, err := services.HashPassword(*req.Password)
	if err != nil {
		h.fail(c, "Failed to store user", err)
		return
	}

	user := models.User{
		FirstName:  *req.FirstName,
		LastName:   *req.LastName,
		Email:      *req.Email,
		Phone:      *req.Phone,
		Department: *req.Department,
		Role:       *req.Role,
		Status:     *req.Status,
		Password:   hash,
	}
	if err := h.users.Create(ctx, &user); err != nil {
		h.fail(c, "Failed to store user", err)
		return
	}

	respond(c, http.StatusCreated, "User stored successfully", user)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := pathID(c, "id", "User")
	if err != nil {
		h.fail(c, "Failed to retrieve user", err)
		return
	}

	user, err := h.users.Find(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to retrieve user", missing(err, "User"))
		return
	}
	respond(c, http.StatusOK, "User retrieved successfully", user)
}

// UpdateUser changes the fields that were sent. A new password is hashed
// before it is stored.
func (h *Handler) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "User")
	if err != nil {
		h.fail(c, "Failed to update user", err)
		return
	}
	user, err := h.users.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to update user", missing(err, "User"))
		return
	}

	var req updateUserRequest
	verr := bind(c, &req)
	normalizeEmail(req.Email)
	if err := checkUnique(verr, "email", req.Email, func(email string) (bool, error) {
		return h.users.EmailTaken(ctx, email, id)
	}); err != nil {
		h.fail(c, "Failed to update user", err)
		return
	}
	if err := verr.Err(); err != nil {
		h.fail(c, "Failed to update user", err)
		return
	}

	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&user.FirstName, req.FirstName)
	assign(&user.LastName, req.LastName)
	assign(&user.Email, req.Email)
	assign(&user.Phone, req.Phone)
	assign(&user.Department, req.Department)
	assign(&user.Role, req.Role)
	assign(&user.Status, req.Status)

	if req.Password != nil {
		hash, err := services.HashPassword(*req.Password)
		if err != nil {
			h.fail(c, "Failed to update user", err)
			return
		}
		user.Password = hash
	}

	if err := h.users.Save(ctx, user); err != nil {
		h.fail(c, "Failed to update user", err)
		return
	}
	respond(c, http.StatusOK, "User updated successfully", user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "User")
	if err != nil {
		h.fail(c, "Failed to delete user", err)
		return
	}
	if _, err := h.users.Find(ctx, id); err != nil {
		h.fail(c, "Failed to delete user", missing(err, "User"))
		return
	}

	n, err := h.users.Dependents(ctx, id)
	if err != nil {
		h.fail(c, "Failed to delete user", err)
		return
	}
	if n > 0 {
		h.fail(c, "Failed to delete user", &ConflictError{Message: "Cannot delete user. It has created products."})
		return
	}

	if err := h.users.Delete(ctx, id); err != nil {
		h.fail(c, "Failed to delete user", missing(err, "User"))
		return
	}
	respond(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.users.Search(c.Request.Context(), c.Param("term"))
	if err != nil {
		h.fail(c, "Failed to search users", err)
		return
	}
	respond(c, http.StatusOK, "Users retrieved successfully", users)
}

// UpdateUserStatus changes only the status column.
func (h *Handler) UpdateUserStatus(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id", "User")
	if err != nil {
		h.fail(c, "Failed to update user status", err)
		return
	}
	if _, err := h.users.Find(ctx, id); err != nil {
		h.fail(c, "Failed to update user status", missing(err, "User"))
		return
	}

	var req userStatusRequest
	if err := bind(c, &req).Err(); err != nil {
		h.fail(c, "Failed to update user status", err)
		return
	}

	if err := h.users.UpdateStatus(ctx, id, *req.Status); err != nil {
		h.fail(c, "Failed to update user status", missing(err, "User"))
		return
	}

	user, err := h.users.Find(ctx, id)
	if err != nil {
		h.fail(c, "Failed to update user status", missing(err, "User"))
		return
	}
	respond(c, http.StatusOK, "User status updated successfully", user)
}
