package database

import (
	"context"

	"catalog-server/models"

	"gorm.io/gorm"
)

type BrandRepository struct {
	db *gorm.DB
}

func NewBrandRepository(db *gorm.DB) *BrandRepository {
	return &BrandRepository{db: db}
}

// ListActive returns active brands by name with their category.
func (r *BrandRepository) ListActive(ctx context.Context) ([]models.Brand, error) {
	brands := []models.Brand{}
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("status = ?", models.StatusActive).
		Order("name ASC").
		Find(&brands).Error
	return brands, translate(err)
}

func (r *BrandRepository) Search(ctx context.Context, term string) ([]models.Brand, error) {
	brands := []models.Brand{}
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("status = ?", models.StatusActive).
		Where("LOWER(name) LIKE ?", containsPattern(term)).
		Order("name ASC").
		Find(&brands).Error
	return brands, translate(err)
}

// Find loads a brand with its parent category.
func (r *BrandRepository) Find(ctx context.Context, id uint) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.WithContext(ctx).Preload("Category").First(&brand, id).Error; err != nil {
		return nil, translate(err)
	}
	return &brand, nil
}

func (r *BrandRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Brand{}).Where("id = ?", id).Count(&count).Error
	return count > 0, translate(err)
}

func (r *BrandRepository) NameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Brand{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, translate(err)
}

// Dependents counts the products still pointing at the brand.
func (r *BrandRepository) Dependents(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("brand_id = ?", id).Count(&count).Error
	return count, translate(err)
}

func (r *BrandRepository) Create(ctx context.Context, brand *models.Brand) error {
	return translate(r.db.WithContext(ctx).Omit("Category", "Products").Create(brand).Error)
}

func (r *BrandRepository) Save(ctx context.Context, brand *models.Brand) error {
	return translate(r.db.WithContext(ctx).Omit("Category", "Products").Save(brand).Error)
}

func (r *BrandRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Brand{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
