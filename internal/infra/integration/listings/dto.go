package listings

import (
	"github.com/xavierca1/aqar-matcher/internal/entity"
)

// SearchInput mirrors the listings API query parameters. Zero values are
// omitted from the request.
type SearchInput struct {
	PropertyType  string
	PreferredArea string
	Purpose       string
	MinPrice      *float64
	MaxPrice      *float64
	MinArea       *float64
	MaxArea       *float64
	Page          int
}

type SearchResponse struct {
	Total int    `json:"total"`
	Count int    `json:"count"`
	Posts []Post `json:"posts"`
}

// Post fields absent from the payload stay unknown (nil), never zero.
type Post struct {
	ID           entity.FlexID    `json:"id"`
	Title        string           `json:"title"`
	Link         string           `json:"link"`
	PriceAmount  entity.FlexFloat `json:"price_amount"`
	Space        entity.FlexFloat `json:"space"`
	City         string           `json:"city"`
	Location     string           `json:"location"`
	PropertyType string           `json:"property_type"`
	Purpose      string           `json:"purpose"`
	SubCatt      string           `json:"sub_catt"`
	Thumbnail    string           `json:"thumbnail"`
}

func (p Post) ToListing() entity.Listing {
	return entity.Listing{
		ID:           string(p.ID),
		Title:        p.Title,
		Link:         p.Link,
		PriceAmount:  p.PriceAmount.Value,
		Space:        p.Space.Value,
		City:         p.City,
		Location:     p.Location,
		PropertyType: p.PropertyType,
		Purpose:      p.Purpose,
		SubCategory:  p.SubCatt,
		Thumbnail:    p.Thumbnail,
	}
}
