package database

import (
	"context"

	"catalog-server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func withRelations(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Category").
		Preload("Brand").
		Preload("Creator").
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") })
}

// ListActive returns active products, newest first, with every relation.
func (r *ProductRepository) ListActive(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := withRelations(r.db.WithContext(ctx)).
		Where("status = ?", models.StatusActive).
		Order("id DESC").
		Find(&products).Error
	return products, translate(err)
}

func (r *ProductRepository) Search(ctx context.Context, term string) ([]models.Product, error) {
	products := []models.Product{}
	err := withRelations(r.db.WithContext(ctx)).
		Where("status = ?", models.StatusActive).
		Where("LOWER(name) LIKE ?", containsPattern(term)).
		Order("id DESC").
		Find(&products).Error
	return products, translate(err)
}

// Find loads a product with category, brand, creator and images.
func (r *ProductRepository) Find(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := withRelations(r.db.WithContext(ctx)).First(&product, id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// Create inserts the product and one image row per path in a single
// transaction.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product, images []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(product).Error; err != nil {
			return err
		}
		return insertImages(tx, product.ID, images)
	})
	return translate(err)
}

// Update saves the product columns and appends image rows; existing images
// are kept.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product, images []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(product).Error; err != nil {
			return err
		}
		return insertImages(tx, product.ID, images)
	})
	return translate(err)
}

// Delete removes the product and its image rows. The removed image paths
// are returned so the caller can clean up storage.
func (r *ProductRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProductImage{}).Where("product_id = ?", id).Pluck("image", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return paths, nil
}

func (r *ProductRepository) AddImage(ctx context.Context, productID uint, path string) (*models.ProductImage, error) {
	image := &models.ProductImage{ProductID: productID, Image: path}
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, translate(err)
	}
	return image, nil
}

// FindImage looks an image up by its product and its own id.
func (r *ProductRepository) FindImage(ctx context.Context, productID, imageID uint) (*models.ProductImage, error) {
	var image models.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND id = ?", productID, imageID).
		First(&image).Error
	if err != nil {
		return nil, translate(err)
	}
	return &image, nil
}

func (r *ProductRepository) DeleteImage(ctx context.Context, image *models.ProductImage) error {
	return translate(r.db.WithContext(ctx).Delete(image).Error)
}

func insertImages(tx *gorm.DB, productID uint, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	rows := make([]models.ProductImage, 0, len(paths))
	for _, p := range paths {
		rows = append(rows, models.ProductImage{ProductID: productID, Image: p})
	}
	return tx.Create(&rows).Error
}
