package areas

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gabriel-vasile/mimetype"
)

// maxUpstreamBody caps how much of an upstream response is read.
const maxUpstreamBody = 4 << 20

// Response is an upstream answer ready to be sent to the client. Body is JSON:
// structured upstream data verbatim, or upstream text encoded as a JSON string.
type Response struct {
	Status     int
	StatusText string
	Body       json.RawMessage
	Structured bool
}

// Gateway looks up place suggestions for a normalised query.
type Gateway interface {
	Lookup(ctx context.Context, input string) (*Response, error)
}

// DefaultTimeout bounds one upstream exchange when none is configured.
const DefaultTimeout = 10 * time.Second

// HTTPGateway is a Gateway backed by the configured place lookup endpoint.
// It is safe for concurrent use; Lookup never modifies it.
type HTTPGateway struct {
	Endpoint string
	Client   *http.Client
	Timeout  time.Duration
}

// NewHTTPGateway builds a gateway with its own client bounded by timeout.
func NewHTTPGateway(endpoint string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPGateway{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
		Timeout:  timeout,
	}
}

// Lookup calls Endpoint?input=<input>. Non-2xx answers are returned as a
// Response, not an error; only failures to complete the exchange are errors.
func (g *HTTPGateway) Lookup(ctx context.Context, input string) (*Response, error) {
	if g.Endpoint == "" {
		return nil, fmt.Errorf("areas: DATA_ENDPOINT is not set")
	}
	u, err := url.Parse(g.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("areas: parse DATA_ENDPOINT: %w", err)
	}
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q := u.Query()
	q.Set("input", input)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.5")
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	body, structured, err := classify(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Body:       body,
		Structured: structured,
	}, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(resp.Body)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
	b, err := io.ReadAll(io.LimitReader(r, maxUpstreamBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading upstream body: %w", err)
	}
	if len(b) > maxUpstreamBody {
		return nil, fmt.Errorf("upstream body exceeds %d bytes", maxUpstreamBody)
	}
	return b, nil
}

// classify decides between structured JSON and opaque text by the declared
// content type, sniffing the body when none is declared.
func classify(contentType string, raw []byte) (json.RawMessage, bool, error) {
	isJSON := false
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			isJSON = mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
		}
	} else if len(bytes.TrimSpace(raw)) > 0 {
		isJSON = mimetype.Detect(raw).Is("application/json")
	}

	if isJSON {
		trimmed := bytes.TrimSpace(raw)
		if !json.Valid(trimmed) {
			return nil, false, fmt.Errorf("upstream declared JSON but sent malformed body (%d bytes)", len(raw))
		}
		return json.RawMessage(trimmed), true, nil
	}
	b, err := json.Marshal(string(raw))
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(b), false, nil
}
