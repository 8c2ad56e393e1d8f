// Package fakeapi is a small local implementation of the store API the
// seeder targets. It backs the test-suite and `cmd/fakeapi`.
package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when a unique name or email already exists.
	ErrDuplicate = errors.New("already exists")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
)

// UserRecord is a stored account.
type UserRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	IsAdmin   bool      `gorm:"default:false" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName overrides the default table name.
func (UserRecord) TableName() string { return "users" }

// CategoryRecord is a stored category.
type CategoryRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName overrides the default table name.
func (CategoryRecord) TableName() string { return "categories" }

// ProductRecord is a stored product with its owner and categories.
type ProductRecord struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"not null" json:"name"`
	Price       float64          `gorm:"not null" json:"price"`
	Description string           `json:"description"`
	UserID      uint             `gorm:"index;not null" json:"-"`
	User        UserRecord       `json:"user"`
	Categories  []CategoryRecord `gorm:"many2many:product_categories;" json:"categories"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// TableName overrides the default table name.
func (ProductRecord) TableName() string { return "products" }

// Stats counts stored records.
type Stats struct {
	Users      int64 `json:"users"`
	Categories int64 `json:"categories"`
	Products   int64 `json:"products"`
}

// Store persists the fake API's records through GORM.
type Store struct {
	db         *gorm.DB
	bcryptCost int
}

// NewStore wraps db. A zero bcryptCost uses bcrypt.DefaultCost.
func NewStore(db *gorm.DB, bcryptCost int) *Store {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Store{db: db, bcryptCost: bcryptCost}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&UserRecord{}, &CategoryRecord{}, &ProductRecord{})
}

// CreateUser stores a user with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, name, email, password string) (*UserRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing int64
	if err := s.db.WithContext(ctx).Model(&UserRecord{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("user %q: %w", email, ErrDuplicate)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &UserRecord{Name: strings.TrimSpace(name), Email: email, Password: string(hash)}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureAdmin creates the admin account if it does not exist yet, or marks
// an existing account with that email as admin.
func (s *Store) EnsureAdmin(ctx context.Context, email, password string) (*UserRecord, error) {
	user, err := s.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		user, err = s.CreateUser(ctx, "Admin", email, password)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_admin", true).Error; err != nil {
		return nil, err
	}
	user.IsAdmin = true
	return user, nil
}

// UserByEmail looks a user up by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var user UserRecord
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate returns the user whose email and password match.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*UserRecord, error) {
	user, err := s.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	return user, nil
}

// CreateCategory stores a category with a unique name.
func (s *Store) CreateCategory(ctx context.Context, name, description string) (*CategoryRecord, error) {
	name = strings.TrimSpace(name)

	var existing int64
	if err := s.db.WithContext(ctx).Model(&CategoryRecord{}).Where("name = ?", name).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("category %q: %w", name, ErrDuplicate)
	}

	cat := &CategoryRecord{Name: name, Description: description}
	if err := s.db.WithContext(ctx).Create(cat).Error; err != nil {
		return nil, err
	}
	return cat, nil
}

// NewProduct is the input of CreateProduct.
type NewProduct struct {
	Name        string
	Price       float64
	Description string
	UserID      uint
	CategoryIDs []uint
}

// CreateProduct stores a product after checking that its owner and every
// category exist.
func (s *Store) CreateProduct(ctx context.Context, in NewProduct) (*ProductRecord, error) {
	var product *ProductRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner UserRecord
		if err := tx.First(&owner, in.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", in.UserID, ErrNotFound)
			}
			return err
		}

		unique := make([]uint, 0, len(in.CategoryIDs))
		seen := make(map[uint]bool, len(in.CategoryIDs))
		for _, id := range in.CategoryIDs {
			if !seen[id] {
				seen[id] = true
				unique = append(unique, id)
			}
		}

		var categories []CategoryRecord
		if err := tx.Where("id IN ?", unique).Order("id").Find(&categories).Error; err != nil {
			return err
		}
		if len(categories) != len(unique) {
			return fmt.Errorf("categories %v: %w", in.CategoryIDs, ErrNotFound)
		}

		product = &ProductRecord{
			Name:        strings.TrimSpace(in.Name),
			Price:       in.Price,
			Description: in.Description,
			UserID:      owner.ID,
			User:        owner,
			Categories:  categories,
		}
		return tx.Omit("User").Create(product).Error
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct loads a product with its owner and categories.
func (s *Store) GetProduct(ctx context.Context, id uint) (*ProductRecord, error) {
	var product ProductRecord
	err := s.db.WithContext(ctx).Preload("User").Preload("Categories").First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns products, optionally restricted to one category.
func (s *Store) ListProducts(ctx context.Context, categoryID uint, limit, offset int) ([]ProductRecord, error) {
	q := s.db.WithContext(ctx).Preload("User").Preload("Categories").Order("products.id")
	if categoryID != 0 {
		q = q.Joins("JOIN product_categories pc ON pc.product_record_id = products.id").
			Where("pc.category_record_id = ?", categoryID)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var products []ProductRecord
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Stats counts stored records.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&UserRecord{}).Count(&st.Users).Error; err != nil {
		return st, err
	}
	if err := db.Model(&CategoryRecord{}).Count(&st.Categories).Error; err != nil {
		return st, err
	}
	if err := db.Model(&ProductRecord{}).Count(&st.Products).Error; err != nil {
		return st, err
	}
	return st, nil
}
