package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// listingSchemaJSON is the single definition of a valid listing submission.
// It is served to clients as-is so the form runs the same rules.
//
//go:embed listing.schema.json
var listingSchemaJSON []byte

const listingSchemaURL = "listing.schema.json"

var (
	listingSchema   = compileListingSchema()
	listingMessages = loadMessages(listingSchemaJSON)
)

// maxCount bounds bathrooms and bedrooms; it matches the schema maximum.
const maxCount = 1000

// numericFields arrive as text from HTML forms and are parsed before validation.
var numericFields = []string{"price", "bathrooms", "bedrooms"}

// FieldError is one failed rule. Path[0] is always the field name.
type FieldError struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

// Error carries every failure found in a payload.
type Error struct {
	Failures []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, strings.Join(f.Path, ".")+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ListingInput is a validated, typed listing submission.
type ListingInput struct {
	Title            string
	Type             string
	Area             string
	Price            float64
	PlaceID          string
	Levels           []string
	Bathrooms        int
	Bedrooms         int
	PropertyType     string
	ExtraDescription *string
}

// ListingSchema returns the raw schema document.
func ListingSchema() []byte {
	return listingSchemaJSON
}

// ValidateListing checks a decoded JSON payload against the listing schema and
// returns either the typed input or an *Error listing all failures.
func ValidateListing(payload interface{}) (*ListingInput, error) {
	doc, ok := normalize(payload)
	if !ok {
		return nil, &Error{Failures: []FieldError{{Path: []string{}, Message: "Expected a JSON object", Code: "type"}}}
	}

	var failures []FieldError
	for _, field := range listingSchema.Required {
		if _, present := doc[field]; !present {
			failures = append(failures, FieldError{
				Path:    []string{field},
				Message: messageFor(field, "required", "Required"),
				Code:    "required",
			})
		}
	}

	if err := listingSchema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("validate listing: %w", err)
		}
		collect(ve, &failures)
	}

	var in *ListingInput
	if len(failures) == 0 {
		in, failures = toInput(doc)
	}
	if len(failures) > 0 {
		sortFailures(failures)
		return nil, &Error{Failures: failures}
	}
	return in, nil
}

// normalize round-trips the payload through JSON so the validator only ever
// sees JSON-native types, then applies form coercions.
func normalize(payload interface{}) (map[string]interface{}, bool) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(b, &doc); err != nil || doc == nil {
		return nil, false
	}

	if v, ok := doc["extra-description"]; ok {
		if _, has := doc["extraDescription"]; !has {
			doc["extraDescription"] = v
		}
		delete(doc, "extra-description")
	}
	if v, ok := doc["extraDescription"]; ok && v == nil {
		delete(doc, "extraDescription")
	}

	for _, field := range numericFields {
		s, ok := doc[field].(string)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		doc[field] = f
	}
	return doc, true
}

func collect(ve *jsonschema.ValidationError, out *[]FieldError) {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			collect(c, out)
		}
		return
	}
	keyword := lastSegment(ve.KeywordLocation)
	if keyword == "required" {
		// reported from the schema's required list
		return
	}
	path := splitPointer(ve.InstanceLocation)
	if len(path) == 0 {
		*out = append(*out, FieldError{Path: []string{}, Message: ve.Message, Code: keyword})
		return
	}
	*out = append(*out, FieldError{
		Path:    path,
		Message: messageFor(path[0], keyword, ve.Message),
		Code:    keyword,
	})
}

func sortFailures(failures []FieldError) {
	rank := func(f FieldError) int {
		if len(f.Path) == 0 {
			return -1
		}
		for i, name := range listingSchema.Required {
			if name == f.Path[0] {
				return i
			}
		}
		return len(listingSchema.Required)
	}
	sort.SliceStable(failures, func(i, j int) bool {
		return rank(failures[i]) < rank(failures[j])
	})
}

// toInput converts a schema-valid document. Counts are range checked again so
// a float that does not fit an int never reaches the store.
func toInput(doc map[string]interface{}) (*ListingInput, []FieldError) {
	in := &ListingInput{
		Title:        doc["title"].(string),
		Type:         doc["type"].(string),
		Area:         doc["area"].(string),
		Price:        doc["price"].(float64),
		PlaceID:      doc["placeId"].(string),
		PropertyType: doc["propertyType"].(string),
	}
	var failures []FieldError
	for field, dst := range map[string]*int{"bathrooms": &in.Bathrooms, "bedrooms": &in.Bedrooms} {
		f := doc[field].(float64)
		if f < 0 || f > maxCount || f != math.Trunc(f) {
			failures = append(failures, FieldError{
				Path:    []string{field},
				Message: messageFor(field, "maximum", "Out of range"),
				Code:    "maximum",
			})
			continue
		}
		*dst = int(f)
	}
	if len(failures) > 0 {
		return nil, failures
	}
	for _, l := range doc["levels"].([]interface{}) {
		in.Levels = append(in.Levels, l.(string))
	}
	if s, ok := doc["extraDescription"].(string); ok {
		in.ExtraDescription = &s
	}
	return in, nil
}

func messageFor(field, keyword, fallback string) string {
	msgs := listingMessages[field]
	if m, ok := msgs[keyword]; ok {
		return m
	}
	if m, ok := msgs["default"]; ok {
		return m
	}
	return fallback
}

func lastSegment(pointer string) string {
	if i := strings.LastIndex(pointer, "/"); i >= 0 {
		return pointer[i+1:]
	}
	return pointer
}

// splitPointer turns a JSON pointer ("/levels/1") into path segments.
func splitPointer(pointer string) []string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return nil
	}
	parts := strings.Split(pointer, "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts
}

func compileListingSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(listingSchemaURL, bytes.NewReader(listingSchemaJSON)); err != nil {
		panic("validation: add listing schema: " + err.Error())
	}
	return compiler.MustCompile(listingSchemaURL)
}

// loadMessages reads the errorMessage annotations, keyed by field then keyword.
func loadMessages(raw []byte) map[string]map[string]string {
	var doc struct {
		Properties map[string]struct {
			ErrorMessage map[string]string `json:"errorMessage"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic("validation: parse listing schema messages: " + err.Error())
	}
	out := make(map[string]map[string]string, len(doc.Properties))
	for field, p := range doc.Properties {
		out[field] = p.ErrorMessage
	}
	return out
}
