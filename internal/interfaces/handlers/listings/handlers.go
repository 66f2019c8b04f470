package listings

import (
	"encoding/json"
	"errors"

	listsvc "estate-backend/internal/application/listings"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"
	"estate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *listsvc.Service
}

// POST /api/create-listing: 200 with the persisted row.
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	// A body that is not JSON is validated as nil and rejected as a non-object.
	var body interface{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		body = nil
	}

	listing, err := h.Service.CreateListing(c.UserContext(), body)
	if err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			return response.Validation(c, ve)
		}
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("listings: create failed")
		return response.Error(c, "Failed to save listing", fiber.StatusInternalServerError)
	}
	return response.OK(c, listing)
}

// GET /api/listings: every listing, newest first.
func (h *Handlers) ListListings(c *fiber.Ctx) error {
	listings, err := h.Service.ListListings(c.UserContext())
	if err != nil {
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("listings: fetch failed")
		return response.Error(c, "Failed to fetch listings", fiber.StatusInternalServerError)
	}
	return response.OK(c, listings)
}

// GET /api/schemas/listing: the schema document the validator compiles.
func (h *Handlers) Schema(c *fiber.Ctx) error {
	return response.RawJSON(c, fiber.StatusOK, validation.ListingSchema())
}
