package schema

// Availability values accepted for products.
var Availabilities = []string{"InStock", "OutOfStock", "PreOrder", "Discontinued"}

// EventStatuses accepted for events.
var EventStatuses = []string{"EventScheduled", "EventMovedOnline", "EventPostponed", "EventCancelled"}

type ProductData struct {
	Name            string         `json:"name"`
	Image           string         `json:"image,omitempty"`
	Description     string         `json:"description,omitempty"`
	Brand           string         `json:"brand,omitempty"`
	SKU             string         `json:"sku,omitempty"`
	GTIN            string         `json:"gtin,omitempty"`
	Price           string         `json:"price,omitempty"`
	PriceCurrency   string         `json:"priceCurrency"`
	Availability    string         `json:"availability,omitempty"`
	URL             string         `json:"url,omitempty"`
	AggregateRating *ProductRating `json:"aggregateRating,omitempty"`
}

type ProductRating struct {
	RatingValue float64 `json:"ratingValue"`
	ReviewCount int     `json:"reviewCount"`
	BestRating  float64 `json:"bestRating,omitempty"`
	WorstRating float64 `json:"worstRating,omitempty"`
}

type PostalAddress struct {
	StreetAddress   string `json:"streetAddress"`
	AddressLocality string `json:"addressLocality"`
	AddressRegion   string `json:"addressRegion"`
	PostalCode      string `json:"postalCode"`
	AddressCountry  string `json:"addressCountry"`
}

type ContactPoint struct {
	Telephone   string `json:"telephone,omitempty"`
	Email       string `json:"email,omitempty"`
	ContactType string `json:"contactType,omitempty"`
}

type OrganizationData struct {
	Name         string         `json:"name"`
	URL          string         `json:"url,omitempty"`
	Logo         string         `json:"logo,omitempty"`
	Description  string         `json:"description,omitempty"`
	ContactPoint *ContactPoint  `json:"contactPoint,omitempty"`
	Address      *PostalAddress `json:"address,omitempty"`
}

type Publisher struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type ArticleData struct {
	Headline      string     `json:"headline"`
	Image         string     `json:"image,omitempty"`
	Author        string     `json:"author"`
	DatePublished string     `json:"datePublished,omitempty"`
	DateModified  string     `json:"dateModified,omitempty"`
	Publisher     *Publisher `json:"publisher,omitempty"`
	ArticleBody   string     `json:"articleBody,omitempty"`
}

type BusinessData struct {
	Name         string         `json:"name"`
	Image        string         `json:"image,omitempty"`
	Telephone    string         `json:"telephone,omitempty"`
	Email        string         `json:"email,omitempty"`
	Address      *PostalAddress `json:"address,omitempty"`
	OpeningHours string         `json:"openingHours,omitempty"`
	PriceRange   string         `json:"priceRange,omitempty"`
}

type SearchAction struct {
	Target     string `json:"target"`
	QueryInput string `json:"queryInput,omitempty"`
}

type WebsiteData struct {
	Name            string        `json:"name"`
	URL             string        `json:"url"`
	Description     string        `json:"description,omitempty"`
	PotentialAction *SearchAction `json:"potentialAction,omitempty"`
}

type Place struct {
	Name    string        `json:"name"`
	Address PostalAddress `json:"address"`
}

type EventData struct {
	Name        string `json:"name"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Location    *Place `json:"location,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	EventStatus string `json:"eventStatus,omitempty"`
}

// NamedRef is a nested object carrying only a name.
type NamedRef struct {
	Name string `json:"name"`
}

type PersonData struct {
	Name       string    `json:"name"`
	GivenName  string    `json:"givenName,omitempty"`
	FamilyName string    `json:"familyName,omitempty"`
	Image      string    `json:"image,omitempty"`
	JobTitle   string    `json:"jobTitle,omitempty"`
	WorksFor   *NamedRef `json:"worksFor,omitempty"`
	Email      string    `json:"email,omitempty"`
	Telephone  string    `json:"telephone,omitempty"`
	URL        string    `json:"url,omitempty"`
	SameAs     []string  `json:"sameAs,omitempty"`
}

type Nutrition struct {
	Calories            string `json:"calories,omitempty"`
	FatContent          string `json:"fatContent,omitempty"`
	CarbohydrateContent string `json:"carbohydrateContent,omitempty"`
	ProteinContent      string `json:"proteinContent,omitempty"`
}

type RecipeData struct {
	Name           string     `json:"name"`
	Image          string     `json:"image,omitempty"`
	Description    string     `json:"description,omitempty"`
	PrepTime       string     `json:"prepTime,omitempty"`
	CookTime       string     `json:"cookTime,omitempty"`
	TotalTime      string     `json:"totalTime,omitempty"`
	Keywords       string     `json:"keywords,omitempty"`
	RecipeYield    string     `json:"recipeYield,omitempty"`
	RecipeCuisine  string     `json:"recipeCuisine,omitempty"`
	RecipeCategory string     `json:"recipeCategory,omitempty"`
	Nutrition      *Nutrition `json:"nutrition,omitempty"`
}

type ReviewRating struct {
	RatingValue float64 `json:"ratingValue"`
	BestRating  float64 `json:"bestRating"`
	WorstRating float64 `json:"worstRating"`
}

type ReviewData struct {
	ItemReviewed  NamedRef     `json:"itemReviewed"`
	ReviewRating  ReviewRating `json:"reviewRating"`
	Author        NamedRef     `json:"author"`
	ReviewBody    string       `json:"reviewBody,omitempty"`
	DatePublished string       `json:"datePublished,omitempty"`
}

type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type FAQData struct {
	Questions []FAQEntry `json:"questions"`
}
