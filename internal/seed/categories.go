package seed

import (
	"context"

	"storeseed/internal/apiclient"
	"storeseed/internal/models"
	"storeseed/internal/observability"
)

// CategorySet maps created category names to their ids, in creation order.
type CategorySet struct {
	names []string
	ids   map[string]models.ID
}

// NewCategorySet returns an empty set.
func NewCategorySet() *CategorySet {
	return &CategorySet{ids: make(map[string]models.ID)}
}

// Add records a created category. Re-adding a name replaces its id.
func (cs *CategorySet) Add(name string, id models.ID) {
	if _, ok := cs.ids[name]; !ok {
		cs.names = append(cs.names, name)
	}
	cs.ids[name] = id
}

// ID returns the id of a created category.
func (cs *CategorySet) ID(name string) (models.ID, bool) {
	id, ok := cs.ids[name]
	return id, ok
}

// Names returns the created category names in creation order.
func (cs *CategorySet) Names() []string {
	return append([]string(nil), cs.names...)
}

// Len returns the number of created categories.
func (cs *CategorySet) Len() int {
	return len(cs.names)
}

// SeedCategories creates every catalog category and returns the ones the
// API confirmed.
func (s *Seeder) SeedCategories(ctx context.Context) *CategorySet {
	span, ctx := observability.StartStage(ctx, apiclient.ResourceCategories)
	defer span.End()

	log := observability.NewSeedLogger(apiclient.ResourceCategories, s.logger)
	log.LogStage(ctx, "creating categories", map[string]any{"count": len(s.catalog.Categories)})

	set := NewCategorySet()
	for _, cat := range s.catalog.Categories {
		if ctx.Err() != nil {
			break
		}

		id, err := s.api.CreateCategory(ctx, cat)
		if err != nil {
			s.summary.CategoriesFailed++
			log.LogFailure(ctx, err, map[string]any{"name": cat.Name})
			continue
		}

		set.Add(cat.Name, id)
		s.summary.CategoriesCreated++
		log.LogCreate(ctx, map[string]any{"id": id.String(), "name": cat.Name})
	}
	return set
}
