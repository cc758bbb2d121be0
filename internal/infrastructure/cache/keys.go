package cache

import (
	"strconv"
	"strings"
)

// VideoKeyKind is the namespace segment of a video cache key.
type VideoKeyKind string

const (
	VideoKeyCity       VideoKeyKind = "city"
	VideoKeyPlace      VideoKeyKind = "place"
	VideoKeyCollection VideoKeyKind = "collection"
	VideoKeyRelated    VideoKeyKind = "related"
)

// ParseVideoKeyKind maps a request's type parameter to a key kind.
// Unknown and empty values fall back to VideoKeyCity.
func ParseVideoKeyKind(s string) VideoKeyKind {
	switch k := VideoKeyKind(normalize(s)); k {
	case VideoKeyPlace, VideoKeyCollection, VideoKeyRelated:
		return k
	default:
		return VideoKeyCity
	}
}

// VideoKey returns "video:<kind>:<id>" with id lower-cased.
func VideoKey(kind VideoKeyKind, id string) string {
	return "video:" + string(kind) + ":" + normalize(id)
}

// SearchKey identifies a video search. Text parts are case-insensitive.
func SearchKey(kind VideoKeyKind, city, query string, limit int) string {
	return VideoKey(kind, city+":"+query+":"+strconv.Itoa(limit))
}

// CollectionKey identifies a curated city collection.
func CollectionKey(city, country, collection string) string {
	return VideoKey(VideoKeyCollection, city+":"+country+":"+collection)
}

// RelatedKey identifies related videos for a video. YouTube IDs are
// case-sensitive, so the video ID is kept verbatim.
func RelatedKey(videoID, city string, limit int) string {
	return "video:" + string(VideoKeyRelated) + ":" + videoID + ":" + normalize(city) + ":" + strconv.Itoa(limit)
}

// AnalysisKey returns "analysis:<videoID>".
func AnalysisKey(videoID string) string {
	return "analysis:" + videoID
}

// PlaceKey returns "place:<name>:<city>" lower-cased, so lookups that differ
// only in case or surrounding whitespace share an entry.
func PlaceKey(placeName, cityName string) string {
	return "place:" + normalize(placeName) + ":" + normalize(cityName)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
