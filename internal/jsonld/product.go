// Package jsonld builds Schema.org JSON-LD documents from validated records
// and wraps them as embeddable script fragments.
//
// Builders are pure: no store or network access, and the same input always
// encodes to the same bytes.
package jsonld

import (
	"github.com/danmuck/schemakit/internal/schema"
)

const (
	Context   = "https://schema.org"
	vocabBase = "https://schema.org/"
)

// ProductInput is the flat product description a Product document is built from.
type ProductInput struct {
	Name            string
	Description     string
	Image           string
	Brand           string
	Price           string
	PriceCurrency   string
	Availability    string
	SKU             string
	GTIN            string
	URL             string
	AggregateRating *RatingInput
}

type RatingInput struct {
	RatingValue float64
	ReviewCount int
	BestRating  float64
	WorstRating float64
}

type Product struct {
	Context         string           `json:"@context"`
	Type            string           `json:"@type"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Image           string           `json:"image,omitempty"`
	Brand           Brand            `json:"brand"`
	Offers          Offer            `json:"offers"`
	SKU             string           `json:"sku,omitempty"`
	GTIN            string           `json:"gtin,omitempty"`
	AggregateRating *AggregateRating `json:"aggregateRating,omitempty"`
}

type Brand struct {
	Type string `json:"@type"`
	Name string `json:"name,omitempty"`
}

type Offer struct {
	Type          string `json:"@type"`
	URL           string `json:"url,omitempty"`
	PriceCurrency string `json:"priceCurrency,omitempty"`
	Price         string `json:"price,omitempty"`
	Availability  string `json:"availability"`
}

type AggregateRating struct {
	Type        string  `json:"@type"`
	RatingValue float64 `json:"ratingValue"`
	ReviewCount int     `json:"reviewCount"`
	BestRating  float64 `json:"bestRating"`
	WorstRating float64 `json:"worstRating"`
}

// BuildProduct maps in onto the fixed Schema.org Product shape. gtin and
// aggregateRating appear only when present; rating bounds default to 5 and 1.
func BuildProduct(in ProductInput) Product {
	doc := Product{
		Context:     Context,
		Type:        "Product",
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Brand:       Brand{Type: "Brand", Name: in.Brand},
		Offers: Offer{
			Type:          "Offer",
			URL:           in.URL,
			PriceCurrency: in.PriceCurrency,
			Price:         in.Price,
			Availability:  vocabBase + in.Availability,
		},
		SKU:  in.SKU,
		GTIN: in.GTIN,
	}
	if r := in.AggregateRating; r != nil {
		doc.AggregateRating = &AggregateRating{
			Type:        "AggregateRating",
			RatingValue: r.RatingValue,
			ReviewCount: r.ReviewCount,
			BestRating:  orDefault(r.BestRating, 5),
			WorstRating: orDefault(r.WorstRating, 1),
		}
	}
	return doc
}

// DefaultAvailability is used when a stored product has none.
const DefaultAvailability = "InStock"

// ProductInputFrom flattens a stored product record. Record-level name and
// description fill in for empty payload values.
func ProductInputFrom(rec schema.Record) ProductInput {
	p := rec.Product
	if p == nil {
		p = &schema.ProductData{}
	}
	in := ProductInput{
		Name:          firstNonEmpty(p.Name, rec.Name),
		Description:   firstNonEmpty(p.Description, rec.Description),
		Image:         p.Image,
		Brand:         p.Brand,
		Price:         p.Price,
		PriceCurrency: firstNonEmpty(p.PriceCurrency, "USD"),
		Availability:  firstNonEmpty(p.Availability, DefaultAvailability),
		SKU:           p.SKU,
		GTIN:          p.GTIN,
		URL:           p.URL,
	}
	if r := p.AggregateRating; r != nil {
		in.AggregateRating = &RatingInput{
			RatingValue: r.RatingValue,
			ReviewCount: r.ReviewCount,
			BestRating:  r.BestRating,
			WorstRating: r.WorstRating,
		}
	}
	return in
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
