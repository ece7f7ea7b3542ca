package main

import (
	"context"
	"errors"
	"log"
	"os"

	"catalog-server/config"
	"catalog-server/database"
	"catalog-server/logger"
	"catalog-server/models"
	"catalog-server/services"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Categories and the brands filed under them
var catalogData = map[string][]string{
	"Shoes":       {"Nike", "Adidas", "Puma"},
	"Electronics": {"Samsung", "Sony", "Lenovo"},
	"Kitchen":     {"Tefal", "Moulinex"},
	"Books":       {"Penguin", "Hachette"},
}

// Sample products per brand with their price
var sampleProducts = map[string]map[string]string{
	"Nike":    {"Air Max 90": "129.99", "Pegasus 40": "119.00"},
	"Adidas":  {"Ultraboost": "179.95"},
	"Samsung": {"Galaxy Tab S9": "799.00"},
	"Sony":    {"WH-1000XM5": "349.99"},
	"Tefal":   {"Ingenio Pan Set": "89.90"},
	"Penguin": {"Collected Essays": "14.50"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	logr, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, logr)
	if err != nil {
		logr.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logr.WithError(err).Fatal("failed to migrate database")
	}
	logr.Info("connected to database")

	ctx := context.Background()
	users := database.NewUserRepository(db)
	categories := database.NewCategoryRepository(db)
	brands := database.NewBrandRepository(db)
	products := database.NewProductRepository(db)

	admin, err := seedAdmin(ctx, users)
	if err != nil {
		logr.WithError(err).Fatal("failed to seed admin user")
	}
	logr.WithField("email", admin.Email).Info("admin user ready")

	for categoryName, brandNames := range catalogData {
		taken, err := categories.NameTaken(ctx, categoryName, 0)
		if err != nil {
			logr.WithError(err).WithField("category", categoryName).Error("lookup failed")
			continue
		}
		if taken {
			logr.WithField("category", categoryName).Info("category exists, skipping")
			continue
		}

		category := &models.Category{Name: categoryName, Status: models.StatusActive}
		if err := categories.Create(ctx, category); err != nil {
			logr.WithError(err).WithField("category", categoryName).Error("failed to insert category")
			continue
		}
		logr.WithField("category", categoryName).Info("inserted category")

		for _, brandName := range brandNames {
			brand := &models.Brand{Name: brandName, Status: models.StatusActive, CategoryID: category.ID}
			if err := brands.Create(ctx, brand); err != nil {
				logr.WithError(err).WithField("brand", brandName).Error("failed to insert brand")
				continue
			}
			logr.WithField("brand", brandName).Info("  inserted brand")

			for productName, price := range sampleProducts[brandName] {
				product := &models.Product{
					Name:       productName,
					Price:      decimal.RequireFromString(price),
					Qty:        25,
					Status:     models.StatusActive,
					CategoryID: category.ID,
					BrandID:    brand.ID,
					CreateBy:   admin.ID,
				}
				if err := products.Create(ctx, product, nil); err != nil {
					logr.WithError(err).WithField("product", productName).Error("failed to insert product")
					continue
				}
				logr.WithFields(logrus.Fields{"product": productName, "price": price}).Info("    inserted product")
			}
		}
	}

	logr.Info("catalog seeding completed")
}

// seedAdmin returns the admin account, creating it on first run.
func seedAdmin(ctx context.Context, users *database.UserRepository) (*models.User, error) {
	email := getenv("SEED_ADMIN_EMAIL", "admin@example.com")
	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	hash, err := services.HashPassword(getenv("SEED_ADMIN_PASSWORD", "change-me-now"))
	if err != nil {
		return nil, err
	}
	admin := &models.User{
		FirstName:  "Catalog",
		LastName:   "Admin",
		Email:      email,
		Phone:      "000-0000",
		Department: "Operations",
		Role:       models.RoleAdmin,
		Status:     models.StatusActive,
		Password:   hash,
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
