package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storeseed/internal/apiclient"
	"storeseed/internal/models"
	"storeseed/internal/observability"
)

// ErrIncompleteName is returned for full names with fewer than two tokens.
var ErrIncompleteName = errors.New("full name needs a first and a last name")

// EmailFor derives first.last@domain, lowercased, from the first two
// whitespace-separated tokens of fullName.
func EmailFor(fullName, domain string) (string, error) {
	parts := strings.Fields(fullName)
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q", ErrIncompleteName, fullName)
	}
	return fmt.Sprintf("%s.%s@%s", strings.ToLower(parts[0]), strings.ToLower(parts[1]), domain), nil
}

// BuildUser returns the creation payload for one catalog name.
func (s *Seeder) BuildUser(fullName string) (models.User, error) {
	email, err := EmailFor(fullName, s.catalog.EmailDomain)
	if err != nil {
		return models.User{}, err
	}
	return models.User{
		Name:     fullName,
		Email:    email,
		Password: s.catalog.Password,
	}, nil
}

// SeedUsers creates every catalog user and returns the ids of the ones the
// API confirmed, in catalog order.
func (s *Seeder) SeedUsers(ctx context.Context) []models.ID {
	span, ctx := observability.StartStage(ctx, apiclient.ResourceUsers)
	defer span.End()

	log := observability.NewSeedLogger(apiclient.ResourceUsers, s.logger)
	log.LogStage(ctx, "creating users", map[string]any{"count": len(s.catalog.Users)})

	ids := make([]models.ID, 0, len(s.catalog.Users))
	for _, fullName := range s.catalog.Users {
		if ctx.Err() != nil {
			break
		}

		user, err := s.BuildUser(fullName)
		if err != nil {
			s.summary.UsersFailed++
			log.LogFailure(ctx, err, map[string]any{"name": fullName})
			continue
		}

		id, err := s.api.CreateUser(ctx, user)
		if err != nil {
			s.summary.UsersFailed++
			log.LogFailure(ctx, err, map[string]any{"name": fullName, "email": user.Email})
			continue
		}

		ids = append(ids, id)
		s.summary.UsersCreated++
		log.LogCreate(ctx, map[string]any{"id": id.String(), "name": fullName, "email": user.Email})
	}
	return ids
}
