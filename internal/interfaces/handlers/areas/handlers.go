package areas

import (
	"encoding/json"
	"errors"

	areasvc "estate-backend/internal/application/areas"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *areasvc.Service
}

// GET /api/fetch?query=: area suggestions, passed through from the lookup
// service (or the cache) unchanged.
func (h *Handlers) Fetch(c *fiber.Ctx) error {
	traceID := middleware.GetTraceID(c)
	body, err := h.Service.GetSuggestions(c.UserContext(), c.Query("query"))
	if err == nil {
		return response.RawJSON(c, fiber.StatusOK, body)
	}

	var upstream *areasvc.UpstreamError
	var transport *areasvc.TransportError
	switch {
	case errors.Is(err, areasvc.ErrEmptyQuery):
		return response.Error(c, err.Error(), fiber.StatusBadRequest)
	case errors.As(err, &upstream):
		log.Warn().Int("status", upstream.Status).Str("trace_id", traceID).Msg("areas: upstream rejected lookup")
		out, merr := json.Marshal(struct {
			Error json.RawMessage `json:"error"`
		}{Error: upstream.Detail()})
		if merr != nil {
			return response.Error(c, upstream.StatusText, upstream.Status)
		}
		return response.RawJSON(c, upstream.Status, out)
	case errors.As(err, &transport):
		log.Error().Err(err).Str("trace_id", traceID).Msg("areas: upstream unreachable")
		return response.ErrorWithDetails(c, "Failed to fetch data", transport.Err.Error(), fiber.StatusBadGateway)
	default:
		log.Error().Err(err).Str("trace_id", traceID).Msg("areas: lookup failed")
		return response.ErrorWithDetails(c, "Failed to fetch data", err.Error(), fiber.StatusBadGateway)
	}
}
