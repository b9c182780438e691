package jsonld

import (
	"fmt"

	"github.com/danmuck/schemakit/internal/schema"
)

// Node is a generic JSON-LD object. Keys are encoded in sorted order, so
// documents built from the same record are byte-identical.
type Node map[string]any

func node(typ string) Node {
	return Node{"@type": typ}
}

func root(typ string) Node {
	return Node{"@context": Context, "@type": typ}
}

// set adds key when v is not the zero value for its type.
func (n Node) set(key string, v any) Node {
	switch x := v.(type) {
	case string:
		if x == "" {
			return n
		}
	case Node:
		if x == nil {
			return n
		}
	case []string:
		if len(x) == 0 {
			return n
		}
	case nil:
		return n
	}
	n[key] = v
	return n
}

type builder func(schema.Record) (any, error)

var builders = map[schema.Kind]builder{
	schema.KindProduct: func(rec schema.Record) (any, error) {
		return BuildProduct(ProductInputFrom(rec)), nil
	},
	schema.KindOrganization:  organization,
	schema.KindArticle:       article,
	schema.KindLocalBusiness: localBusiness,
	schema.KindWebsite:       website,
	schema.KindEvent:         event,
	schema.KindPerson:        person,
	schema.KindRecipe:        recipe,
	schema.KindReview:        review,
	schema.KindFAQ:           faqPage,
}

// BuildDocument builds the JSON-LD document for any record kind.
func BuildDocument(rec schema.Record) (any, error) {
	build, ok := builders[rec.Type]
	if !ok {
		return nil, fmt.Errorf("jsonld: unsupported schema type %q", rec.Type)
	}
	if rec.Type != schema.KindProduct && !hasPayload(rec) {
		return nil, fmt.Errorf("jsonld: %s record has no %s", rec.Type, schema.PayloadField(rec.Type))
	}
	return build(rec)
}

func hasPayload(rec schema.Record) bool {
	switch rec.Type {
	case schema.KindOrganization:
		return rec.Organization != nil
	case schema.KindArticle:
		return rec.Article != nil
	case schema.KindLocalBusiness:
		return rec.Business != nil
	case schema.KindWebsite:
		return rec.Website != nil
	case schema.KindEvent:
		return rec.Event != nil
	case schema.KindPerson:
		return rec.Person != nil
	case schema.KindRecipe:
		return rec.Recipe != nil
	case schema.KindReview:
		return rec.Review != nil
	case schema.KindFAQ:
		return rec.FAQ != nil
	}
	return true
}

func postalAddress(a *schema.PostalAddress) Node {
	if a == nil {
		return nil
	}
	return node("PostalAddress").
		set("streetAddress", a.StreetAddress).
		set("addressLocality", a.AddressLocality).
		set("addressRegion", a.AddressRegion).
		set("postalCode", a.PostalCode).
		set("addressCountry", a.AddressCountry)
}

func named(typ, name string) Node {
	if name == "" {
		return nil
	}
	return node(typ).set("name", name)
}

func organization(rec schema.Record) (any, error) {
	d := rec.Organization
	doc := root("Organization").
		set("name", d.Name).
		set("url", d.URL).
		set("logo", d.Logo).
		set("description", firstNonEmpty(d.Description, rec.Description)).
		set("address", postalAddress(d.Address))
	if cp := d.ContactPoint; cp != nil {
		doc.set("contactPoint", node("ContactPoint").
			set("telephone", cp.Telephone).
			set("email", cp.Email).
			set("contactType", cp.ContactType))
	}
	return doc, nil
}

func article(rec schema.Record) (any, error) {
	d := rec.Article
	doc := root("Article").
		set("headline", d.Headline).
		set("image", d.Image).
		set("author", named("Person", d.Author)).
		set("datePublished", d.DatePublished).
		set("dateModified", d.DateModified).
		set("articleBody", d.ArticleBody).
		set("description", rec.Description)
	if p := d.Publisher; p != nil {
		pub := node("Organization").set("name", p.Name)
		if p.Logo != "" {
			pub.set("logo", node("ImageObject").set("url", p.Logo))
		}
		doc.set("publisher", pub)
	}
	return doc, nil
}

func localBusiness(rec schema.Record) (any, error) {
	d := rec.Business
	return root("LocalBusiness").
		set("name", d.Name).
		set("image", d.Image).
		set("telephone", d.Telephone).
		set("email", d.Email).
		set("address", postalAddress(d.Address)).
		set("openingHours", d.OpeningHours).
		set("priceRange", d.PriceRange).
		set("description", rec.Description), nil
}

func website(rec schema.Record) (any, error) {
	d := rec.Website
	doc := root("WebSite").
		set("name", d.Name).
		set("url", d.URL).
		set("description", firstNonEmpty(d.Description, rec.Description))
	if pa := d.PotentialAction; pa != nil {
		doc.set("potentialAction", node("SearchAction").
			set("target", pa.Target).
			set("query-input", pa.QueryInput))
	}
	return doc, nil
}

func event(rec schema.Record) (any, error) {
	d := rec.Event
	doc := root("Event").
		set("name", d.Name).
		set("startDate", d.StartDate).
		set("endDate", d.EndDate).
		set("image", d.Image).
		set("description", firstNonEmpty(d.Description, rec.Description))
	if d.EventStatus != "" {
		doc.set("eventStatus", vocabBase+d.EventStatus)
	}
	if loc := d.Location; loc != nil {
		doc.set("location", node("Place").
			set("name", loc.Name).
			set("address", postalAddress(&loc.Address)))
	}
	return doc, nil
}

func person(rec schema.Record) (any, error) {
	d := rec.Person
	doc := root("Person").
		set("name", d.Name).
		set("givenName", d.GivenName).
		set("familyName", d.FamilyName).
		set("image", d.Image).
		set("jobTitle", d.JobTitle).
		set("email", d.Email).
		set("telephone", d.Telephone).
		set("url", d.URL).
		set("sameAs", d.SameAs).
		set("description", rec.Description)
	if d.WorksFor != nil {
		doc.set("worksFor", named("Organization", d.WorksFor.Name))
	}
	return doc, nil
}

func recipe(rec schema.Record) (any, error) {
	d := rec.Recipe
	doc := root("Recipe").
		set("name", d.Name).
		set("image", d.Image).
		set("description", firstNonEmpty(d.Description, rec.Description)).
		set("prepTime", d.PrepTime).
		set("cookTime", d.CookTime).
		set("totalTime", d.TotalTime).
		set("keywords", d.Keywords).
		set("recipeYield", d.RecipeYield).
		set("recipeCuisine", d.RecipeCuisine).
		set("recipeCategory", d.RecipeCategory)
	if n := d.Nutrition; n != nil {
		doc.set("nutrition", node("NutritionInformation").
			set("calories", n.Calories).
			set("fatContent", n.FatContent).
			set("carbohydrateContent", n.CarbohydrateContent).
			set("proteinContent", n.ProteinContent))
	}
	return doc, nil
}

func review(rec schema.Record) (any, error) {
	d := rec.Review
	rating := node("Rating")
	rating["ratingValue"] = d.ReviewRating.RatingValue
	rating["bestRating"] = orDefault(d.ReviewRating.BestRating, 5)
	rating["worstRating"] = orDefault(d.ReviewRating.WorstRating, 1)
	return root("Review").
		set("itemReviewed", node("Thing").set("name", d.ItemReviewed.Name)).
		set("reviewRating", rating).
		set("author", named("Person", d.Author.Name)).
		set("reviewBody", d.ReviewBody).
		set("datePublished", d.DatePublished), nil
}

func faqPage(rec schema.Record) (any, error) {
	entities := make([]Node, 0, len(rec.FAQ.Questions))
	for _, q := range rec.FAQ.Questions {
		entities = append(entities, node("Question").
			set("name", q.Question).
			set("acceptedAnswer", node("Answer").set("text", q.Answer)))
	}
	doc := root("FAQPage").set("name", rec.Name)
	doc["mainEntity"] = entities
	return doc, nil
}
