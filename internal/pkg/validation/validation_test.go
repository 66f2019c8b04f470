package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func validPayload(t *testing.T) map[string]interface{} {
	return decode(t, `{
		"title": "Nice flat",
		"type": "rent",
		"area": "Athens, Attica",
		"price": "500",
		"placeId": "abc123",
		"levels": ["1", "2"],
		"bathrooms": 1,
		"bedrooms": 2,
		"propertyType": "apartment"
	}`)
}

func failuresOf(t *testing.T, err error) []FieldError {
	t.Helper()
	var ve *Error
	require.True(t, errors.As(err, &ve), "expected *validation.Error, got %v", err)
	return ve.Failures
}

func fields(failures []FieldError) []string {
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Path[0])
	}
	return out
}

func TestValidateListing_Valid(t *testing.T) {
	in, err := ValidateListing(validPayload(t))
	require.NoError(t, err)
	assert.Equal(t, "Nice flat", in.Title)
	assert.Equal(t, "rent", in.Type)
	assert.Equal(t, "Athens, Attica", in.Area)
	assert.Equal(t, 500.0, in.Price)
	assert.Equal(t, "abc123", in.PlaceID)
	assert.Equal(t, []string{"1", "2"}, in.Levels)
	assert.Equal(t, 1, in.Bathrooms)
	assert.Equal(t, 2, in.Bedrooms)
	assert.Equal(t, "apartment", in.PropertyType)
	assert.Nil(t, in.ExtraDescription)
}

func TestValidateListing_CoercesFormStrings(t *testing.T) {
	p := validPayload(t)
	p["bathrooms"] = "0"
	p["bedrooms"] = " 3 "
	p["extra-description"] = "Sea view"

	in, err := ValidateListing(p)
	require.NoError(t, err)
	assert.Equal(t, 0, in.Bathrooms)
	assert.Equal(t, 3, in.Bedrooms)
	require.NotNil(t, in.ExtraDescription)
	assert.Equal(t, "Sea view", *in.ExtraDescription)
}

func TestValidateListing_MissingType(t *testing.T) {
	p := validPayload(t)
	delete(p, "type")

	_, err := ValidateListing(p)
	failures := failuresOf(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, []string{"type"}, failures[0].Path)
	assert.Equal(t, "Type is required", failures[0].Message)
	assert.Equal(t, "required", failures[0].Code)
}

func TestValidateListing_InvalidTypeValue(t *testing.T) {
	p := validPayload(t)
	p["type"] = "lease"

	_, err := ValidateListing(p)
	failures := failuresOf(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "type", failures[0].Path[0])
	assert.Equal(t, "Type is required", failures[0].Message)
}

func TestValidateListing_Price(t *testing.T) {
	for _, price := range []interface{}{0.0, -5.0, "0", "-1", "", "abc"} {
		p := validPayload(t)
		p["price"] = price

		_, err := ValidateListing(p)
		failures := failuresOf(t, err)
		require.Len(t, failures, 1, "price %v", price)
		assert.Equal(t, "price", failures[0].Path[0])
		assert.Equal(t, "Price must be greater than 0", failures[0].Message)
	}
}

func TestValidateListing_TitleBound(t *testing.T) {
	p := validPayload(t)
	p["title"] = strings.Repeat("ά", 155)
	_, err := ValidateListing(p)
	require.NoError(t, err)

	p["title"] = strings.Repeat("a", 156)
	_, err = ValidateListing(p)
	failures := failuresOf(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "Max length is 155", failures[0].Message)
	assert.Equal(t, "maxLength", failures[0].Code)

	p["title"] = ""
	_, err = ValidateListing(p)
	failures = failuresOf(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "Title is required", failures[0].Message)
}

func TestValidateListing_Levels(t *testing.T) {
	p := validPayload(t)
	p["levels"] = []interface{}{}
	_, err := ValidateListing(p)
	failures := failuresOf(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "At least one level must be selected", failures[0].Message)

	p["levels"] = []interface{}{"1", "1"}
	_, err = ValidateListing(p)
	failures = failuresOf(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "uniqueItems", failures[0].Code)

	p["levels"] = []interface{}{"1", "2,3"}
	_, err = ValidateListing(p)
	failures = failuresOf(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, []string{"levels", "1"}, failures[0].Path)
	assert.Equal(t, "Level labels must not be empty or contain commas", failures[0].Message)
}

func TestValidateListing_NegativeAndFractionalCounts(t *testing.T) {
	p := validPayload(t)
	p["bathrooms"] = -1.0
	p["bedrooms"] = 1.5

	_, err := ValidateListing(p)
	failures := failuresOf(t, err)
	assert.ElementsMatch(t, []string{"bathrooms", "bedrooms"}, fields(failures))
}

func TestValidateListing_HugeCountsRejected(t *testing.T) {
	for _, tc := range []struct {
		bathrooms interface{}
		bedrooms  interface{}
	}{
		{1e19, "1e300"},
		{1001.0, "1001"},
		{float64(1 << 62), 2.0},
	} {
		p := validPayload(t)
		p["bathrooms"] = tc.bathrooms
		p["bedrooms"] = tc.bedrooms

		in, err := ValidateListing(p)
		assert.Nil(t, in)
		failures := failuresOf(t, err)
		assert.Contains(t, fields(failures), "bathrooms", "%v", tc)
		for _, f := range failures {
			assert.Equal(t, "maximum", f.Code)
		}
	}

	p := validPayload(t)
	p["bathrooms"] = 1000.0
	in, err := ValidateListing(p)
	require.NoError(t, err)
	assert.Equal(t, 1000, in.Bathrooms)
}

func TestToInput_RangeChecksCounts(t *testing.T) {
	doc := validPayload(t)
	doc["price"] = 500.0
	doc["bathrooms"] = 1e19
	doc["bedrooms"] = -3.0

	in, failures := toInput(doc)
	assert.Nil(t, in)
	assert.ElementsMatch(t, []string{"bathrooms", "bedrooms"}, fields(failures))
}

func TestValidateListing_PriceFitsColumn(t *testing.T) {
	for price, code := range map[interface{}]string{
		0.001:           "multipleOf",
		"12.345":        "multipleOf",
		1e12:            "maximum",
		"1000000000000": "maximum",
	} {
		p := validPayload(t)
		p["price"] = price

		_, err := ValidateListing(p)
		failures := failuresOf(t, err)
		require.Len(t, failures, 1, "price %v", price)
		assert.Equal(t, code, failures[0].Code, "price %v", price)
	}

	for _, price := range []interface{}{0.01, "500.10", 999999999999.99} {
		p := validPayload(t)
		p["price"] = price
		_, err := ValidateListing(p)
		assert.NoError(t, err, "price %v", price)
	}
}

func TestValidateListing_ReportsEveryFailure(t *testing.T) {
	_, err := ValidateListing(map[string]interface{}{"price": "0", "propertyType": "castle"})
	failures := failuresOf(t, err)

	got := fields(failures)
	for _, f := range []string{"title", "type", "area", "price", "placeId", "levels", "bathrooms", "bedrooms", "propertyType"} {
		assert.Contains(t, got, f)
	}
	// declaration order
	assert.Equal(t, "title", got[0])
	assert.Equal(t, "propertyType", got[len(got)-1])
}

func TestValidateListing_NotAnObject(t *testing.T) {
	for _, payload := range []interface{}{nil, "listing", []interface{}{1, 2}} {
		_, err := ValidateListing(payload)
		failures := failuresOf(t, err)
		require.Len(t, failures, 1)
		assert.Empty(t, failures[0].Path)
	}
}

func TestValidateListing_NullExtraDescriptionIsAbsent(t *testing.T) {
	p := validPayload(t)
	p["extraDescription"] = nil
	in, err := ValidateListing(p)
	require.NoError(t, err)
	assert.Nil(t, in.ExtraDescription)
}

func TestListingSchema_IsServedDocument(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(ListingSchema(), &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Contains(t, doc["required"], "placeId")
}
