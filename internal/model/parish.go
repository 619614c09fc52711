package model

import (
	"strconv"
	"strings"
)

// Parish type constants as stored in the dataset.
const (
	TypeChurch = "church"
	TypeGongso = "gongso"
	TypeShrine = "shrine"
)

// Parish represents a single parish record in the collected dataset.
type Parish struct {
	Orgnum              string        `json:"orgnum"`
	Name                string        `json:"name"`
	Type                string        `json:"type"`
	Diocese             string        `json:"diocese,omitempty"`
	Address             string        `json:"address"`
	Phone               string        `json:"phone,omitempty"`
	Pastor              string        `json:"pastor,omitempty"`
	MassTimes           string        `json:"mass_times,omitempty"`
	MassTimesStructured []MassTimeRow `json:"mass_times_structured,omitempty"`
	HasMassTimes        bool          `json:"has_mass_times"`
	ImageURL            string        `json:"image_url,omitempty"`
	DetailURL           string        `json:"detail_url,omitempty"`
	CrawledAt           string        `json:"crawled_at,omitempty"`
	Location            *Location     `json:"location,omitempty"`
	Landmarks           []Landmark    `json:"landmarks,omitempty"`
	SEOTags             []string      `json:"seo_tags,omitempty"`
	EnrichmentStatus    string        `json:"enrichment_status,omitempty"`
	EnrichmentVersion   string        `json:"enrichment_version,omitempty"`
}

// MassTimeRow is one row of a parish's mass-time table as published on
// the directory detail page: the mass type spans rows, each row holds a
// day expression and the times cell verbatim.
type MassTimeRow struct {
	Type  string `json:"type"`
	Day   string `json:"day"`
	Times string `json:"times"`
}

// Location holds WGS84 coordinates from geocoding.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Landmark is a nearby point of interest discovered during enrichment.
type Landmark struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Distance string `json:"distance,omitempty"`
}

// DistanceMeters parses the distance the search API reported. Unknown
// distances sort last.
func (l Landmark) DistanceMeters() int {
	n, err := strconv.Atoi(strings.TrimSpace(l.Distance))
	if err != nil {
		return 9999
	}
	return n
}
