package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"catalog-server/database"
	"catalog-server/models"
	"catalog-server/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Minimal valid image headers; mimetype only looks at the signature.
var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	gifBytes = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
)

// memStore backs every fake repository so dependency counts see the
// same rows the handlers wrote.
type memStore struct {
	mu         sync.Mutex
	seq        uint
	categories map[uint]models.Category
	brands     map[uint]models.Brand
	products   map[uint]models.Product
	images     map[uint]models.ProductImage
	users      map[uint]models.User

	// writeErr, when set, fails every row write the handlers make
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[uint]models.Category{},
		brands:     map[uint]models.Brand{},
		products:   map[uint]models.Product{},
		images:     map[uint]models.ProductImage{},
		users:      map[uint]models.User{},
	}
}

func (s *memStore) next() uint {
	s.seq++
	return s.seq
}

func contains(value, term string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(strings.TrimSpace(term)))
}

type fakeCategories struct{ *memStore }

func (f fakeCategories) ListActive(ctx context.Context) ([]models.Category, error) {
	return f.Search(ctx, "")
}

func (f fakeCategories) Search(_ context.Context, term string) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Category{}
	for _, c := range f.categories {
		if c.Status == models.StatusActive && contains(c.Name, term) {
			c.Brands = f.brandsOf(c.ID)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeCategories) brandsOf(id uint) []models.Brand {
	out := []models.Brand{}
	for _, b := range f.brands {
		if b.CategoryID == id {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f fakeCategories) Find(_ context.Context, id uint) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &c, nil
}

func (f fakeCategories) FindWithBrands(ctx context.Context, id uint) (*models.Category, error) {
	c, err := f.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c.Brands = f.brandsOf(id)
	return c, nil
}

func (f fakeCategories) Exists(_ context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.categories[id]
	return ok, nil
}

func (f fakeCategories) NameTaken(_ context.Context, name string, exceptID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.categories {
		if c.Name == name && id != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeCategories) Dependents(_ context.Context, id uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.brands {
		if b.CategoryID == id {
			n++
		}
	}
	for _, p := range f.products {
		if p.CategoryID == id {
			n++
		}
	}
	return n, nil
}

func (f fakeCategories) Create(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	c.ID = f.next()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	row := *c
	row.Brands, row.Products = nil, nil
	f.categories[c.ID] = row
	return nil
}

func (f fakeCategories) Save(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	c.UpdatedAt = time.Now()
	row := *c
	row.Brands, row.Products = nil, nil
	f.categories[c.ID] = row
	return nil
}

func (f fakeCategories) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

type fakeBrands struct{ *memStore }

func (f fakeBrands) ListActive(ctx context.Context) ([]models.Brand, error) {
	return f.Search(ctx, "")
}

func (f fakeBrands) Search(_ context.Context, term string) ([]models.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Brand{}
	for _, b := range f.brands {
		if b.Status == models.StatusActive && contains(b.Name, term) {
			out = append(out, f.withCategory(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeBrands) withCategory(b models.Brand) models.Brand {
	if c, ok := f.categories[b.CategoryID]; ok {
		b.Category = &c
	}
	return b
}

func (f fakeBrands) Find(_ context.Context, id uint) (*models.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.brands[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	b = f.withCategory(b)
	return &b, nil
}

func (f fakeBrands) Exists(_ context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.brands[id]
	return ok, nil
}

func (f fakeBrands) NameTaken(_ context.Context, name string, exceptID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, b := range f.brands {
		if b.Name == name && id != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeBrands) Dependents(_ context.Context, id uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.products {
		if p.BrandID == id {
			n++
		}
	}
	return n, nil
}

func (f fakeBrands) Create(_ context.Context, b *models.Brand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	b.ID = f.next()
	row := *b
	row.Category, row.Products = nil, nil
	f.brands[b.ID] = row
	return nil
}

func (f fakeBrands) Save(_ context.Context, b *models.Brand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	row := *b
	row.Category, row.Products = nil, nil
	f.brands[b.ID] = row
	return nil
}

func (f fakeBrands) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.brands[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.brands, id)
	return nil
}

type fakeProducts struct{ *memStore }

func (f fakeProducts) load(p models.Product) models.Product {
	if c, ok := f.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	if b, ok := f.brands[p.BrandID]; ok {
		p.Brand = &b
	}
	if u, ok := f.users[p.CreateBy]; ok {
		p.Creator = &u
	}
	p.Images = []models.ProductImage{}
	for _, img := range f.images {
		if img.ProductID == p.ID {
			p.Images = append(p.Images, img)
		}
	}
	sort.Slice(p.Images, func(i, j int) bool { return p.Images[i].ID < p.Images[j].ID })
	return p
}

func (f fakeProducts) ListActive(ctx context.Context) ([]models.Product, error) {
	return f.Search(ctx, "")
}

func (f fakeProducts) Search(_ context.Context, term string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	for _, p := range f.products {
		if p.Status == models.StatusActive && contains(p.Name, term) {
			out = append(out, f.load(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeProducts) Find(_ context.Context, id uint) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	p = f.load(p)
	return &p, nil
}

func (f fakeProducts) write(p *models.Product, images []string) {
	row := *p
	row.Category, row.Brand, row.Creator, row.Images = nil, nil, nil, nil
	f.products[p.ID] = row
	for _, path := range images {
		id := f.next()
		f.images[id] = models.ProductImage{ID: id, ProductID: p.ID, Image: path}
	}
}

func (f fakeProducts) Create(_ context.Context, p *models.Product, images []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	p.ID = f.next()
	f.write(p, images)
	return nil
}

func (f fakeProducts) Update(_ context.Context, p *models.Product, images []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if _, ok := f.products[p.ID]; !ok {
		return database.ErrNotFound
	}
	f.write(p, images)
	return nil
}

func (f fakeProducts) Delete(_ context.Context, id uint) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return nil, database.ErrNotFound
	}
	var paths []string
	for imgID, img := range f.images {
		if img.ProductID == id {
			paths = append(paths, img.Image)
			delete(f.images, imgID)
		}
	}
	delete(f.products, id)
	return paths, nil
}

func (f fakeProducts) AddImage(_ context.Context, productID uint, path string) (*models.ProductImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	img := models.ProductImage{ID: f.next(), ProductID: productID, Image: path}
	f.images[img.ID] = img
	return &img, nil
}

func (f fakeProducts) FindImage(_ context.Context, productID, imageID uint) (*models.ProductImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[imageID]
	if !ok || img.ProductID != productID {
		return nil, database.ErrNotFound
	}
	return &img, nil
}

func (f fakeProducts) DeleteImage(_ context.Context, img *models.ProductImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.images, img.ID)
	return nil
}

type fakeUsers struct{ *memStore }

func (f fakeUsers) List(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeUsers) Search(_ context.Context, term string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.users {
		if contains(u.FirstName, term) || contains(u.LastName, term) || contains(u.Email, term) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeUsers) Find(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (f fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f fakeUsers) Exists(_ context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[id]
	return ok, nil
}

func (f fakeUsers) EmailTaken(_ context.Context, email string, exceptID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Email == email && id != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) Dependents(_ context.Context, id uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.products {
		if p.CreateBy == id {
			n++
		}
	}
	return n, nil
}

func (f fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.next()
	f.users[u.ID] = *u
	return nil
}

func (f fakeUsers) Save(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = *u
	return nil
}

func (f fakeUsers) UpdateStatus(_ context.Context, id uint, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.Status = status
	f.users[id] = u
	return nil
}

func (f fakeUsers) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// countingStorage records calls made to the wrapped storage.
type countingStorage struct {
	services.FileStorage
	mu    sync.Mutex
	calls []string
}

func (s *countingStorage) record(op string) {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	s.mu.Unlock()
}

func (s *countingStorage) Put(ctx context.Context, dir, name string, r io.Reader) (string, error) {
	s.record("put")
	return s.FileStorage.Put(ctx, dir, name, r)
}

func (s *countingStorage) Exists(ctx context.Context, p string) (bool, error) {
	s.record("exists")
	return s.FileStorage.Exists(ctx, p)
}

func (s *countingStorage) Delete(ctx context.Context, p string) error {
	s.record("delete")
	return s.FileStorage.Delete(ctx, p)
}

func (s *countingStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type testEnv struct {
	t       *testing.T
	store   *memStore
	storage *countingStorage
	local   *services.LocalStorage
	root    string
	tokens  *services.TokenIssuer
	router  *gin.Engine
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	root := t.TempDir()
	local, err := services.NewLocalStorage(root)
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		t:       t,
		store:   newMemStore(),
		storage: &countingStorage{FileStorage: local},
		local:   local,
		root:    root,
		tokens:  services.NewTokenIssuer("test-secret", time.Hour),
	}

	h := New(Deps{
		Categories: fakeCategories{env.store},
		Brands:     fakeBrands{env.store},
		Products:   fakeProducts{env.store},
		Users:      fakeUsers{env.store},
		Storage:    env.storage,
		Tokens:     env.tokens,
		Log:        log,
		Options:    opts,
	})

	env.router = gin.New()
	env.router.Use(RequestLogger(log), Recovery(log))
	h.Register(env.router)
	return env
}

type response struct {
	Status  int
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
	Error   string              `json:"error"`
}

func (e *testEnv) do(req *http.Request) response {
	e.t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var res response
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		e.t.Fatalf("%s %s: decode %q: %v", req.Method, req.URL.Path, w.Body.String(), err)
	}
	res.Status = w.Code
	return res
}

func (e *testEnv) call(method, path string, body interface{}) response {
	e.t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

// upload sends a multipart form with an optional file under "image".
func (e *testEnv) upload(method, path string, fields map[string]string, filename string, content []byte) response {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			e.t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
		hdr.Set("Content-Type", "application/octet-stream")
		part, err := mw.CreatePart(hdr)
		if err != nil {
			e.t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			e.t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		e.t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func (e *testEnv) fileExists(p string) bool {
	e.t.Helper()
	ok, err := e.local.Exists(context.Background(), p)
	if err != nil {
		e.t.Fatalf("exists %q: %v", p, err)
	}
	return ok
}

// storedFiles lists every file under the storage root.
func (e *testEnv) storedFiles() []string {
	e.t.Helper()
	var files []string
	err := filepath.WalkDir(e.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(e.root, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		e.t.Fatalf("walk storage: %v", err)
	}
	return files
}

// failWrites makes every following row write return err.
func (e *testEnv) failWrites(err error) {
	e.store.mu.Lock()
	e.store.writeErr = err
	e.store.mu.Unlock()
}

// form sends fields as a urlencoded body.
func (e *testEnv) form(method, path string, fields url.Values) response {
	e.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
}

func (e *testEnv) seedCategory(name string) models.Category {
	c := models.Category{Name: name, Status: models.StatusActive}
	if err := (fakeCategories{e.store}).Create(context.Background(), &c); err != nil {
		e.t.Fatalf("seed category: %v", err)
	}
	return c
}

func (e *testEnv) seedBrand(name string, categoryID uint) models.Brand {
	b := models.Brand{Name: name, Status: models.StatusActive, CategoryID: categoryID}
	if err := (fakeBrands{e.store}).Create(context.Background(), &b); err != nil {
		e.t.Fatalf("seed brand: %v", err)
	}
	return b
}

func (e *testEnv) seedUser(email, password, status string) models.User {
	hash, err := services.HashPassword(password)
	if err != nil {
		e.t.Fatalf("hash: %v", err)
	}
	u := models.User{
		FirstName: "Ada", LastName: "Lovelace", Email: email, Phone: "555-0100",
		Department: "Catalog", Role: models.RoleAdmin, Status: status, Password: hash,
	}
	if err := (fakeUsers{e.store}).Create(context.Background(), &u); err != nil {
		e.t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedProduct creates a category, brand and user and a product using them.
func (e *testEnv) seedProduct(name string, images ...string) models.Product {
	c := e.seedCategory(name + " category")
	b := e.seedBrand(name+" brand", c.ID)
	u := e.seedUser(strings.ToLower(strings.ReplaceAll(name, " ", "."))+"@example.com", "password123", models.StatusActive)
	p := models.Product{Name: name, Qty: 1, Status: models.StatusActive, CategoryID: c.ID, BrandID: b.ID, CreateBy: u.ID}
	if err := (fakeProducts{e.store}).Create(context.Background(), &p, images); err != nil {
		e.t.Fatalf("seed product: %v", err)
	}
	return p
}

func (e *testEnv) putFile(dir, name string) string {
	e.t.Helper()
	p, err := e.local.Put(context.Background(), dir, name, bytes.NewReader(pngBytes))
	if err != nil {
		e.t.Fatalf("put file: %v", err)
	}
	return p
}
