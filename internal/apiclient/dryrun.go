package apiclient

import (
	"context"
	"log"

	"storeseed/internal/models"
)

// Recorder stands in for the API in dry-run mode. It assigns synthetic
// numeric ids and keeps every payload it was given.
type Recorder struct {
	// synthetic ID counter
	nextID int64

	Users      []models.User
	Categories []models.Category
	Products   []models.Product
}

// NewRecorder returns a Recorder whose first id is 1001.
func NewRecorder() *Recorder {
	return &Recorder{nextID: 1000}
}

func (r *Recorder) assign() models.ID {
	r.nextID++
	return models.NumericID(r.nextID)
}

// CreateUser records u.
func (r *Recorder) CreateUser(ctx context.Context, u models.User) (models.ID, error) {
	if err := ctx.Err(); err != nil {
		return models.ID{}, err
	}
	r.Users = append(r.Users, u)
	log.Printf("[dry-run] CreateUser: %s <%s>", u.Name, u.Email)
	return r.assign(), nil
}

// CreateCategory records cat.
func (r *Recorder) CreateCategory(ctx context.Context, cat models.Category) (models.ID, error) {
	if err := ctx.Err(); err != nil {
		return models.ID{}, err
	}
	r.Categories = append(r.Categories, cat)
	log.Printf("[dry-run] CreateCategory: %s", cat.Name)
	return r.assign(), nil
}

// CreateProduct records p.
func (r *Recorder) CreateProduct(ctx context.Context, p models.Product) (models.ID, error) {
	if err := ctx.Err(); err != nil {
		return models.ID{}, err
	}
	r.Products = append(r.Products, p)
	return r.assign(), nil
}
