// Package schema holds the persisted record model: a tagged union of Schema.org
// entity descriptions plus ownership metadata.
package schema

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Kind discriminates the record variants.
type Kind string

const (
	KindProduct       Kind = "product"
	KindOrganization  Kind = "organization"
	KindArticle       Kind = "article"
	KindLocalBusiness Kind = "localBusiness"
	KindWebsite       Kind = "website"
	KindEvent         Kind = "event"
	KindPerson        Kind = "person"
	KindRecipe        Kind = "recipe"
	KindReview        Kind = "review"
	KindFAQ           Kind = "FAQ"
)

// Kinds lists every variant in declaration order.
var Kinds = []Kind{
	KindProduct,
	KindOrganization,
	KindArticle,
	KindLocalBusiness,
	KindWebsite,
	KindEvent,
	KindPerson,
	KindRecipe,
	KindReview,
	KindFAQ,
}

// ParseKind returns the kind named by s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Field names of record metadata.
const (
	FieldID          = "schemaId"
	FieldUserID      = "userId"
	FieldDynamic     = "dynamic"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldType        = "type"
	FieldStoreID     = "_id"
	FieldName        = "name"
	FieldDescription = "description"
)

// ImmutableFields may be set at creation only.
var ImmutableFields = []string{FieldID, FieldUserID, FieldCreatedAt, FieldUpdatedAt, FieldStoreID}

// Record is one saved schema. Exactly one payload pointer matching Type is set.
type Record struct {
	ID        string     `json:"schemaId"`
	UserID    string     `json:"userId"`
	Dynamic   bool       `json:"dynamic"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	Type        Kind   `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Product      *ProductData      `json:"productData,omitempty"`
	Organization *OrganizationData `json:"organizationData,omitempty"`
	Article      *ArticleData      `json:"articleData,omitempty"`
	Business     *BusinessData     `json:"businessData,omitempty"`
	Website      *WebsiteData      `json:"websiteData,omitempty"`
	Event        *EventData        `json:"eventData,omitempty"`
	Person       *PersonData       `json:"personData,omitempty"`
	Recipe       *RecipeData       `json:"recipeData,omitempty"`
	Review       *ReviewData       `json:"reviewData,omitempty"`
	FAQ          *FAQData          `json:"faqData,omitempty"`
}

// PayloadField returns the document key holding the payload for k.
func PayloadField(k Kind) string {
	switch k {
	case KindProduct:
		return "productData"
	case KindOrganization:
		return "organizationData"
	case KindArticle:
		return "articleData"
	case KindLocalBusiness:
		return "businessData"
	case KindWebsite:
		return "websiteData"
	case KindEvent:
		return "eventData"
	case KindPerson:
		return "personData"
	case KindRecipe:
		return "recipeData"
	case KindReview:
		return "reviewData"
	case KindFAQ:
		return "faqData"
	default:
		return ""
	}
}

// Document is the opaque stored form of a record.
type Document map[string]any

// Document converts r into its stored form.
func (r Record) Document() (Document, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("schema: encode record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: encode record: %w", err)
	}
	return doc, nil
}

// Fields returns the user-editable part of r's document: everything except
// ImmutableFields.
func (r Record) Fields() (Document, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}
	for _, f := range ImmutableFields {
		delete(doc, f)
	}
	return doc, nil
}

// Decode reads a stored document back into a Record. Unknown fields are ignored.
func Decode(doc Document) (Record, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Record{}, fmt.Errorf("schema: decode record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("schema: decode record: %w", err)
	}
	return r, nil
}

// Clone deep-copies d through its JSON form.
func (d Document) Clone() (Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge applies set on top of d, replacing top-level keys.
func (d Document) Merge(set Document) Document {
	out := make(Document, len(d)+len(set))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range set {
		out[k] = v
	}
	return out
}
