package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPersistence wraps every store failure; callers only see a fixed message.
var ErrPersistence = errors.New("listing store failure")

type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

// CreateListing validates payload and inserts one listing. Nothing is written
// when validation fails (the error is a *validation.Error). The returned row is
// read back from the INSERT, so it carries the stored values.
func (s *Service) CreateListing(ctx context.Context, payload interface{}) (*domain.Listing, error) {
	in, err := validation.ValidateListing(payload)
	if err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		Title:            in.Title,
		Type:             in.Type,
		Area:             in.Area,
		Price:            in.Price,
		PlaceID:          in.PlaceID,
		ExtraDescription: in.ExtraDescription,
		Levels:           domain.Levels(in.Levels),
		Bathrooms:        in.Bathrooms,
		Bedrooms:         in.Bedrooms,
		PropertyType:     in.PropertyType,
		CreatedAt:        s.now(),
	}
	if err := s.DB.WithContext(ctx).Clauses(clause.Returning{}).Create(listing).Error; err != nil {
		return nil, fmt.Errorf("%w: create listing: %v", ErrPersistence, err)
	}
	return listing, nil
}

// ListListings returns every listing, newest first.
func (s *Service) ListListings(ctx context.Context) ([]domain.Listing, error) {
	listings := []domain.Listing{}
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("%w: fetch listings: %v", ErrPersistence, err)
	}
	return listings, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
