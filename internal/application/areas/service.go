package areas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"estate-backend/internal/infrastructure/cache"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTTL is how long a successful lookup is served from cache.
const DefaultTTL = time.Hour

var ErrEmptyQuery = errors.New("missing query/input parameter")

// UpstreamError is a non-2xx answer from the lookup service. It is never cached.
type UpstreamError struct {
	Status     int
	StatusText string
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.Status)
}

// Detail is the upstream body, or the status text when the body is empty.
func (e *UpstreamError) Detail() json.RawMessage {
	switch strings.TrimSpace(string(e.Body)) {
	case "", `""`, "null":
		b, _ := json.Marshal(e.StatusText)
		return b
	}
	return e.Body
}

// TransportError means the upstream exchange did not complete.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "upstream transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Service serves area suggestions from cache, falling back to the gateway.
type Service struct {
	Cache   cache.Cache
	Gateway Gateway
	TTL     time.Duration

	group singleflight.Group
}

// NormalizeQuery trims and lower-cases a raw query; the result is the cache key
// and the value sent upstream.
func NormalizeQuery(raw string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(raw))
}

// GetSuggestions returns the JSON body for a query. Concurrent misses for the
// same key share one upstream call; a caller that gives up does not cancel it
// for the others.
func (s *Service) GetSuggestions(ctx context.Context, rawQuery string) (json.RawMessage, error) {
	key := NormalizeQuery(rawQuery)
	if key == "" {
		return nil, ErrEmptyQuery
	}

	if b, ok, err := s.Cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("areas: cache read failed, treating as miss")
	} else if ok {
		return b, nil
	}

	// The shared call outlives any one caller; the gateway timeout bounds it.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx), key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	case <-ctx.Done():
		return nil, &TransportError{Err: ctx.Err()}
	}
}

func (s *Service) fetch(ctx context.Context, key string) (json.RawMessage, error) {
	resp, err := s.Gateway.Lookup(ctx, key)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, &UpstreamError{Status: resp.Status, StatusText: resp.StatusText, Body: resp.Body}
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := s.Cache.Set(ctx, key, resp.Body, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("areas: cache write failed")
	}
	return resp.Body, nil
}
