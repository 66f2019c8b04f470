package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LevelsDelimiter joins level labels in the levels column.
const LevelsDelimiter = ","

var (
	ErrNoLevels     = errors.New("at least one level is required")
	ErrInvalidLevel = errors.New("level labels must be non-empty and must not contain the delimiter")
)

// Levels is an ordered list of level labels ("basement", "ground-floor", "1".."10").
// The DB stores it as a comma-joined string; the API always sends an array.
type Levels []string

// EncodeLevels joins levels for storage. It rejects lists that would not decode
// back to the same labels.
func EncodeLevels(levels []string) (string, error) {
	if len(levels) == 0 {
		return "", ErrNoLevels
	}
	for _, l := range levels {
		if l == "" || strings.Contains(l, LevelsDelimiter) {
			return "", fmt.Errorf("%w: %q", ErrInvalidLevel, l)
		}
	}
	return strings.Join(levels, LevelsDelimiter), nil
}

// DecodeLevels splits a stored levels string. Empty segments are dropped.
func DecodeLevels(s string) Levels {
	parts := strings.Split(s, LevelsDelimiter)
	out := make(Levels, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Scan implements sql.Scanner for reading from DB (text column).
func (l *Levels) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = Levels{}
		return nil
	case []byte:
		*l = DecodeLevels(string(v))
		return nil
	case string:
		*l = DecodeLevels(v)
		return nil
	default:
		return errors.New("unsupported type for Levels")
	}
}

// Value implements driver.Valuer for writing to DB.
func (l Levels) Value() (driver.Value, error) {
	return EncodeLevels(l)
}

// Listing is a persisted property advertisement. Rows are never updated.
type Listing struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title            string    `gorm:"column:title;type:varchar(155);not null" json:"title"`
	Type             string    `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Area             string    `gorm:"column:area;not null" json:"area"`
	Price            float64   `gorm:"column:price;type:numeric(14,2);not null" json:"price"`
	PlaceID          string    `gorm:"column:place_id;not null" json:"place_id"`
	ExtraDescription *string   `gorm:"column:extra_description" json:"extra_description"`
	Levels           Levels    `gorm:"column:levels;type:text;not null" json:"levels"`
	Bathrooms        int       `gorm:"column:bathrooms;not null" json:"bathrooms"`
	Bedrooms         int       `gorm:"column:bedrooms;not null" json:"bedrooms"`
	PropertyType     string    `gorm:"column:property_type;type:varchar(20);not null" json:"property_type"`
	CreatedAt        time.Time `gorm:"column:created_at;not null;index:idx_listings_created_at,sort:desc" json:"created_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets the id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
