package validation

import (
	goskema "github.com/reoring/goskema"
	g "github.com/reoring/goskema/dsl"

	"github.com/danmuck/schemakit/internal/schema"
)

type objectSchema = goskema.Schema[map[string]any]

func str(t text) g.AnyAdapter { return g.SchemaOf[string](t) }

func num(n number) g.AnyAdapter { return g.SchemaOf[float64](n) }

func obj(s objectSchema) g.AnyAdapter { return g.SchemaOf[map[string]any](s) }

// name is a required, non-blank string with a variant-specific message.
func name(max int, msg string) g.AnyAdapter {
	return str(text{min: 1, minMsg: msg, max: max})
}

func limit(max int) g.AnyAdapter { return str(text{max: max}) }

var (
	optionalURL   = str(text{format: validURL})
	optionalEmail = str(text{format: validEmail})
	optionalPhone = str(text{format: validPhone})
	optionalDate  = str(text{format: validDatetime})
)

// payloads maps each kind to the schema of its payload object.
var payloads = map[schema.Kind]objectSchema{
	schema.KindProduct:       product(),
	schema.KindOrganization:  organization(),
	schema.KindArticle:       article(),
	schema.KindLocalBusiness: localBusiness(),
	schema.KindWebsite:       website(),
	schema.KindEvent:         event(),
	schema.KindPerson:        person(),
	schema.KindRecipe:        recipe(),
	schema.KindReview:        review(),
	schema.KindFAQ:           faq(),
}

// recordSchema is the discriminated union over every record kind.
var recordSchema = buildRecordSchema()

func buildRecordSchema() objectSchema {
	vars := make([]g.UnionVariant, 0, len(schema.Kinds))
	for _, k := range schema.Kinds {
		vars = append(vars, g.Variant(string(k), envelope(k)))
	}
	return g.Object().Discriminator(schema.FieldType).OneOf(vars...).MustBuild()
}

// envelope is the top-level record shape for kind k. Metadata other than
// dynamic is not accepted from callers and is stripped.
func envelope(k schema.Kind) objectSchema {
	return g.Object().
		Field(schema.FieldType, str(text{})).Required().
		Field(schema.FieldName, str(text{max: 200})).Required().
		Field(schema.FieldDescription, limit(1000)).
		Field(schema.FieldDynamic, g.SchemaOf[bool](flag{})).
		Field(schema.PayloadField(k), obj(payloads[k])).Required().
		UnknownStrip().
		MustBuild()
}

func product() objectSchema {
	rating := g.Object().
		Field("ratingValue", num(number{min: bound(0), max: bound(5)})).Required().
		Field("reviewCount", num(number{integer: true, min: bound(0)})).Required().
		Field("bestRating", num(number{})).
		Field("worstRating", num(number{})).
		UnknownStrip().
		MustBuild()

	return g.Object().
		Field("name", name(200, "Product name is required")).Required().
		Field("image", optionalURL).
		Field("description", limit(5000)).
		Field("brand", limit(200)).
		Field("sku", limit(100)).
		Field("gtin", limit(50)).
		Field("price", str(text{format: validPrice})).
		Field("priceCurrency", str(text{exact: 3})).Default("USD").
		Field("availability", str(text{enum: schema.Availabilities})).
		Field("url", optionalURL).
		Field("aggregateRating", obj(rating)).
		UnknownStrip().
		MustBuild()
}

func address() objectSchema {
	return g.Object().
		Field("streetAddress", limit(500)).Required().
		Field("addressLocality", limit(200)).Required().
		Field("addressRegion", limit(200)).Required().
		Field("postalCode", limit(50)).Required().
		Field("addressCountry", limit(200)).Required().
		UnknownStrip().
		MustBuild()
}

func organization() objectSchema {
	contact := g.Object().
		Field("telephone", optionalPhone).
		Field("email", optionalEmail).
		Field("contactType", limit(100)).
		UnknownStrip().
		MustBuild()

	return g.Object().
		Field("name", name(200, "Organization name is required")).Required().
		Field("url", optionalURL).
		Field("logo", optionalURL).
		Field("description", limit(5000)).
		Field("contactPoint", obj(contact)).
		Field("address", obj(address())).
		UnknownStrip().
		MustBuild()
}

func article() objectSchema {
	publisher := g.Object().
		Field("name", limit(200)).Required().
		Field("logo", optionalURL).
		UnknownStrip().
		MustBuild()

	return g.Object().
		Field("headline", name(200, "Headline is required")).Required().
		Field("image", optionalURL).
		Field("author", limit(200)).Required().
		Field("datePublished", optionalDate).
		Field("dateModified", optionalDate).
		Field("publisher", obj(publisher)).
		Field("articleBody", limit(50000)).
		UnknownStrip().
		MustBuild()
}

func localBusiness() objectSchema {
	return g.Object().
		Field("name", name(200, "Business name is required")).Required().
		Field("image", optionalURL).
		Field("telephone", optionalPhone).
		Field("email", optionalEmail).
		Field("address", obj(address())).
		Field("openingHours", limit(500)).
		Field("priceRange", limit(50)).
		UnknownStrip().
		MustBuild()
}

func website() objectSchema {
	action := g.Object().
		Field("target", str(text{format: validURL})).Required().
		Field("queryInput", limit(500)).
		UnknownStrip().
		MustBuild()

	return g.Object().
		Field("name", name(200, "Website name is required")).Required().
		Field("url", str(text{min: 1, minMsg: "URL is required", format: validURL})).Required().
		Field("description", limit(5000)).
		Field("potentialAction", obj(action)).
		UnknownStrip().
		MustBuild()
}

func event() objectSchema {
	place := g.Object().
		Field("name", limit(200)).Required().
		Field("address", obj(address())).Required().
		UnknownStrip().
		MustBuild()

	return g.Object().
		Field("name", name(200, "Event name is required")).Required().
		Field("startDate", str(text{format: validDatetime})).Required().
		Field("endDate", optionalDate).
		Field("location", obj(place)).
		Field("image", optionalURL).
		Field("description", limit(5000)).
		Field("eventStatus", str(text{enum: schema.EventStatuses})).
		UnknownStrip().
		MustBuild()
}

func person() objectSchema {
	worksFor := g.Object().
		Field("name", limit(200)).Required().
		UnknownStrip().
		MustBuild()

	return g.Object().
		Field("name", name(200, "Name is required")).Required().
		Field("givenName", limit(200)).
		Field("familyName", limit(200)).
		Field("image", optionalURL).
		Field("jobTitle", limit(200)).
		Field("worksFor", obj(worksFor)).
		Field("email", optionalEmail).
		Field("telephone", optionalPhone).
		Field("url", optionalURL).
		Field("sameAs", g.SchemaOf[[]string](list[string]{elem: text{format: plainURL}})).
		UnknownStrip().
		MustBuild()
}

func recipe() objectSchema {
	nutrition := g.Object().
		Field("calories", limit(100)).
		Field("fatContent", limit(100)).
		Field("carbohydrateContent", limit(100)).
		Field("proteinContent", limit(100)).
		UnknownStrip().
		MustBuild()

	return g.Object().
		Field("name", name(200, "Recipe name is required")).Required().
		Field("image", optionalURL).
		Field("description", limit(5000)).
		Field("prepTime", limit(100)).
		Field("cookTime", limit(100)).
		Field("totalTime", limit(100)).
		Field("keywords", limit(500)).
		Field("recipeYield", limit(100)).
		Field("recipeCuisine", limit(200)).
		Field("recipeCategory", limit(200)).
		Field("nutrition", obj(nutrition)).
		UnknownStrip().
		MustBuild()
}

func review() objectSchema {
	item := g.Object().
		Field("name", name(200, "Item name is required")).Required().
		UnknownStrip().
		MustBuild()
	rating := g.Object().
		Field("ratingValue", num(number{min: bound(1), max: bound(5)})).Required().
		Field("bestRating", num(number{})).Default(float64(5)).
		Field("worstRating", num(number{})).Default(float64(1)).
		UnknownStrip().
		MustBuild()
	author := g.Object().
		Field("name", name(200, "Author name is required")).Required().
		UnknownStrip().
		MustBuild()

	return g.Object().
		Field("itemReviewed", obj(item)).Required().
		Field("reviewRating", obj(rating)).Required().
		Field("author", obj(author)).Required().
		Field("reviewBody", limit(5000)).
		Field("datePublished", optionalDate).
		UnknownStrip().
		MustBuild()
}

func faq() objectSchema {
	entry := g.Object().
		Field("question", name(500, "Question is required")).Required().
		Field("answer", name(5000, "Answer is required")).Required().
		UnknownStrip().
		MustBuild()
	questions := list[map[string]any]{elem: entry, min: 1, minMsg: "At least one question is required"}

	return g.Object().
		Field("questions", g.SchemaOf[[]map[string]any](questions)).Required().
		UnknownStrip().
		MustBuild()
}
