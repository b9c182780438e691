package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, ok := ParseKind(string(k))
		require.True(t, ok, "kind %q", k)
		assert.Equal(t, k, got)
		assert.NotEmpty(t, PayloadField(k))
	}
	_, ok := ParseKind("faq")
	assert.False(t, ok, "kind names are case sensitive")
}

func TestDocumentRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{
		ID:        "abc123DEF_",
		UserID:    "user_1",
		Dynamic:   true,
		CreatedAt: created,
		Type:      KindProduct,
		Name:      "Widget",
		Product:   &ProductData{Name: "Widget", PriceCurrency: "USD", Price: "9.99"},
	}

	doc, err := rec.Document()
	require.NoError(t, err)
	assert.Equal(t, "abc123DEF_", doc[FieldID])
	assert.Contains(t, doc, "productData")
	assert.NotContains(t, doc, "eventData")

	back, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, back.ID)
	assert.True(t, back.CreatedAt.Equal(created))
	assert.Equal(t, "9.99", back.Product.Price)
}

func TestFieldsStripsImmutableMetadata(t *testing.T) {
	now := time.Now()
	rec := Record{ID: "id", UserID: "u", CreatedAt: now, UpdatedAt: &now, Type: KindFAQ, Name: "n", FAQ: &FAQData{}}
	fields, err := rec.Fields()
	require.NoError(t, err)
	for _, f := range ImmutableFields {
		assert.NotContains(t, fields, f)
	}
	assert.Equal(t, "FAQ", fields[FieldType])
}

func TestMergeReplacesTopLevelKeys(t *testing.T) {
	base := Document{"name": "old", "dynamic": false, "productData": map[string]any{"sku": "a"}}
	merged := base.Merge(Document{"name": "new", "productData": map[string]any{"price": "1"}})

	assert.Equal(t, "new", merged["name"])
	assert.Equal(t, false, merged["dynamic"])
	assert.Equal(t, map[string]any{"price": "1"}, merged["productData"])
	assert.Equal(t, "old", base["name"], "merge must not mutate the receiver")
}
