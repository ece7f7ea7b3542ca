package handlers

import (
	"catalog-server/models"

	"github.com/gin-gonic/gin"
)

// Register mounts the API on r. Every PATCH update is also reachable
// with PUT.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/auth/login", h.Login)

	// write guards the mutating routes when tokens are required
	write := []gin.HandlerFunc{}
	admin := []gin.HandlerFunc{}
	if h.opts.AuthRequired {
		write = append(write, h.AuthMiddleware())
		admin = append(admin, h.AuthMiddleware(), RequireRole(models.RoleAdmin, models.RoleManager))
	}
	with := func(guards []gin.HandlerFunc, fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guards...), fn)
	}
	// upload routes also cap the body size
	upload := append(append([]gin.HandlerFunc{}, write...), h.limitBody())

	users := r.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", with(admin, h.CreateUser)...)
		users.GET("/search/:term", h.SearchUsers)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", with(admin, h.UpdateUser)...)
		users.PUT("/:id", with(admin, h.UpdateUser)...)
		users.DELETE("/:id", with(admin, h.DeleteUser)...)
		users.PATCH("/:id/status", with(admin, h.UpdateUserStatus)...)
	}

	categories := r.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.POST("", with(upload, h.CreateCategory)...)
		categories.GET("/search/:term", h.SearchCategories)
		categories.GET("/:id", h.GetCategory)
		categories.PATCH("/:id", with(upload, h.UpdateCategory)...)
		categories.PUT("/:id", with(upload, h.UpdateCategory)...)
		categories.DELETE("/:id", with(write, h.DeleteCategory)...)
	}

	brands := r.Group("/brands")
	{
		brands.GET("", h.ListBrands)
		brands.POST("", with(upload, h.CreateBrand)...)
		brands.GET("/search/:term", h.SearchBrands)
		brands.GET("/:id", h.GetBrand)
		brands.PATCH("/:id", with(upload, h.UpdateBrand)...)
		brands.PUT("/:id", with(upload, h.UpdateBrand)...)
		brands.DELETE("/:id", with(write, h.DeleteBrand)...)
	}

	products := r.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.POST("", with(upload, h.CreateProduct)...)
		products.GET("/search/:term", h.SearchProducts)
		products.GET("/:id", h.GetProduct)
		products.PATCH("/:id", with(upload, h.UpdateProduct)...)
		products.PUT("/:id", with(upload, h.UpdateProduct)...)
		products.DELETE("/:id", with(write, h.DeleteProduct)...)
		products.POST("/:id/images", with(upload, h.AddProductImage)...)
		products.DELETE("/:id/images/:imageId", with(write, h.DeleteProductImage)...)
	}
}
