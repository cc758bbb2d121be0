package model

import "slices"

// PlaceCategory is the board column a place card is filed under.
type PlaceCategory string

const (
	PlaceCategoryHotel      PlaceCategory = "hotel"
	PlaceCategoryRestaurant PlaceCategory = "restaurant"
	PlaceCategoryAttraction PlaceCategory = "attraction"
)

// Place is a point of interest resolved from a places lookup.
type Place struct {
	PlaceID          string        `json:"place_id"`
	Name             string        `json:"name"`
	Address          string        `json:"address"`
	Lat              float64       `json:"lat"`
	Lng              float64       `json:"lng"`
	Rating           float32       `json:"rating"`
	UserRatingsTotal int           `json:"user_ratings_total"`
	PriceLevel       int           `json:"price_level"`
	Types            []string      `json:"types"`
	PhotoReference   string        `json:"photo_reference,omitempty"`
	Category         PlaceCategory `json:"category"`
}

var restaurantTypes = []string{"restaurant", "food", "cafe", "bar", "bakery", "meal_takeaway"}

// CategoryForTypes maps place types to a card category.
// Lodging wins over food so that hotels with restaurants stay hotels.
func CategoryForTypes(types []string) PlaceCategory {
	if slices.Contains(types, "lodging") {
		return PlaceCategoryHotel
	}
	for _, t := range types {
		if slices.Contains(restaurantTypes, t) {
			return PlaceCategoryRestaurant
		}
	}
	return PlaceCategoryAttraction
}
