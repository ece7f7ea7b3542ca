package database

import (
	"context"

	"catalog-server/models"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListActive returns active categories by name with their brands.
func (r *CategoryRepository) ListActive(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := r.db.WithContext(ctx).
		Preload("Brands", func(tx *gorm.DB) *gorm.DB { return tx.Order("name ASC") }).
		Where("status = ?", models.StatusActive).
		Order("name ASC").
		Find(&categories).Error
	return categories, translate(err)
}

// Search matches active categories whose name contains term.
func (r *CategoryRepository) Search(ctx context.Context, term string) ([]models.Category, error) {
	categories := []models.Category{}
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Where("LOWER(name) LIKE ?", containsPattern(term)).
		Order("name ASC").
		Find(&categories).Error
	return categories, translate(err)
}

func (r *CategoryRepository) Find(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// FindWithBrands loads a category together with its brands.
func (r *CategoryRepository) FindWithBrands(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Preload("Brands", func(tx *gorm.DB) *gorm.DB { return tx.Order("name ASC") }).
		First(&category, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *CategoryRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, translate(err)
}

// NameTaken reports whether another category already uses name.
// exceptID skips the row being updated; pass 0 on create.
func (r *CategoryRepository) NameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Category{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, translate(err)
}

// Dependents counts the brands and products still pointing at the category.
func (r *CategoryRepository) Dependents(ctx context.Context, id uint) (int64, error) {
	var brands, products int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Brand{}).Where("category_id = ?", id).Count(&brands).Error; err != nil {
		return 0, translate(err)
	}
	if err := db.Model(&models.Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
		return 0, translate(err)
	}
	return brands + products, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return translate(r.db.WithContext(ctx).Omit("Brands", "Products").Create(category).Error)
}

func (r *CategoryRepository) Save(ctx context.Context, category *models.Category) error {
	return translate(r.db.WithContext(ctx).Omit("Brands", "Products").Save(category).Error)
}

func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
