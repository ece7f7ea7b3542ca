package handlers

import (
	"context"

	"catalog-server/models"
	"catalog-server/services"

	"github.com/sirupsen/logrus"
)

type CategoryRepository interface {
	ListActive(ctx context.Context) ([]models.Category, error)
	Search(ctx context.Context, term string) ([]models.Category, error)
	Find(ctx context.Context, id uint) (*models.Category, error)
	FindWithBrands(ctx context.Context, id uint) (*models.Category, error)
	Exists(ctx context.Context, id uint) (bool, error)
	NameTaken(ctx context.Context, name string, exceptID uint) (bool, error)
	Dependents(ctx context.Context, id uint) (int64, error)
	Create(ctx context.Context, category *models.Category) error
	Save(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
}

type BrandRepository interface {
	ListActive(ctx context.Context) ([]models.Brand, error)
	Search(ctx context.Context, term string) ([]models.Brand, error)
	Find(ctx context.Context, id uint) (*models.Brand, error)
	Exists(ctx context.Context, id uint) (bool, error)
	NameTaken(ctx context.Context, name string, exceptID uint) (bool, error)
	Dependents(ctx context.Context, id uint) (int64, error)
	Create(ctx context.Context, brand *models.Brand) error
	Save(ctx context.Context, brand *models.Brand) error
	Delete(ctx context.Context, id uint) error
}

type ProductRepository interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	Search(ctx context.Context, term string) ([]models.Product, error)
	Find(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, product *models.Product, images []string) error
	Update(ctx context.Context, product *models.Product, images []string) error
	Delete(ctx context.Context, id uint) ([]string, error)
	AddImage(ctx context.Context, productID uint, path string) (*models.ProductImage, error)
	FindImage(ctx context.Context, productID, imageID uint) (*models.ProductImage, error)
	DeleteImage(ctx context.Context, image *models.ProductImage) error
}

type UserRepository interface {
	List(ctx context.Context) ([]models.User, error)
	Search(ctx context.Context, term string) ([]models.User, error)
	Find(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
	EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error)
	Dependents(ctx context.Context, id uint) (int64, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
}

// Options tune request handling.
type Options struct {
	// MaxUploadKB caps image uploads.
	MaxUploadKB int64
	// ExposeErrors adds the underlying error text to 500 responses.
	ExposeErrors bool
	// AuthRequired puts mutating routes behind a bearer token.
	AuthRequired bool
}

// Deps groups everything a Handler needs.
type Deps struct {
	Categories CategoryRepository
	Brands     BrandRepository
	Products   ProductRepository
	Users      UserRepository
	Storage    services.FileStorage
	Tokens     *services.TokenIssuer
	Ping       func(ctx context.Context) error
	Log        *logrus.Logger
	Options    Options
}

// Handler serves the catalog API.
type Handler struct {
	categories CategoryRepository
	brands     BrandRepository
	products   ProductRepository
	users      UserRepository
	storage    services.FileStorage
	tokens     *services.TokenIssuer
	ping       func(ctx context.Context) error
	log        *logrus.Logger
	opts       Options
}

func New(d Deps) *Handler {
	if d.Options.MaxUploadKB <= 0 {
		d.Options.MaxUploadKB = 2048
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Ping == nil {
		d.Ping = func(context.Context) error { return nil }
	}
	return &Handler{
		categories: d.Categories,
		brands:     d.Brands,
		products:   d.Products,
		users:      d.Users,
		storage:    d.Storage,
		tokens:     d.Tokens,
		ping:       d.Ping,
		log:        d.Log,
		opts:       d.Options,
	}
}
