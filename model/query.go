package model

import "strconv"

// Mode selects how a trends request is constructed.
type Mode int

const (
	// ModeFiltered builds the request from structured facets.
	ModeFiltered Mode = iota
	// ModeURL builds the request from a user supplied source URL.
	ModeURL
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeFiltered:
		return "filtered"
	case ModeURL:
		return "url"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "filtered", "filters", "":
		return ModeFiltered, true
	case "url":
		return ModeURL, true
	}
	return ModeFiltered, false
}

// Field keys understood by the query model.
const (
	FieldGeo      = "geo"
	FieldLanguage = "hl"
	FieldHours    = "hours"
	FieldCategory = "category"
	FieldSort     = "sort"
	FieldStatus   = "status"
	FieldURL      = "url"
)

// Fields lists every known key in serialization order.
var Fields = []string{FieldGeo, FieldLanguage, FieldHours, FieldCategory, FieldSort, FieldStatus, FieldURL}

// Query is the request state. It is either Filtered or URLDriven; the
// unexported marker keeps other implementations out.
type Query interface {
	Mode() Mode
	// Location and Language are shared by both variants.
	Location() string
	Language() string
	// Values returns the present fields keyed by name. Absent fields are omitted.
	Values() map[string]string
	isQuery()
}

// Filtered holds structured facets. Zero values mean absent.
type Filtered struct {
	Geo      string `json:"geo,omitempty"`
	HL       string `json:"hl,omitempty"`
	Hours    int    `json:"hours,omitempty"`
	Category string `json:"category,omitempty"`
	Sort     Sort   `json:"sort,omitempty"`
	Status   string `json:"status,omitempty"`
}

func (Filtered) isQuery() {}

// Mode returns ModeFiltered.
func (Filtered) Mode() Mode { return ModeFiltered }

// Location returns the geo code.
func (f Filtered) Location() string { return f.Geo }

// Language returns the hl code.
func (f Filtered) Language() string { return f.HL }

// Values returns the present fields.
func (f Filtered) Values() map[string]string {
	v := make(map[string]string, 6)
	putNonEmpty(v, FieldGeo, f.Geo)
	putNonEmpty(v, FieldLanguage, f.HL)
	if f.Hours > 0 {
		v[FieldHours] = strconv.Itoa(f.Hours)
	}
	putNonEmpty(v, FieldCategory, f.Category)
	putNonEmpty(v, FieldSort, string(f.Sort))
	putNonEmpty(v, FieldStatus, f.Status)
	return v
}

// URLDriven holds an opaque source URL plus the location and language.
type URLDriven struct {
	Geo string `json:"geo,omitempty"`
	HL  string `json:"hl,omitempty"`
	URL string `json:"url,omitempty"`
}

func (URLDriven) isQuery() {}

// Mode returns ModeURL.
func (URLDriven) Mode() Mode { return ModeURL }

// Location returns the geo code.
func (u URLDriven) Location() string { return u.Geo }

// Language returns the hl code.
func (u URLDriven) Language() string { return u.HL }

// Values returns the present fields.
func (u URLDriven) Values() map[string]string {
	v := make(map[string]string, 3)
	putNonEmpty(v, FieldGeo, u.Geo)
	putNonEmpty(v, FieldLanguage, u.HL)
	putNonEmpty(v, FieldURL, u.URL)
	return v
}

func putNonEmpty(v map[string]string, key, value string) {
	if value != "" {
		v[key] = value
	}
}

// DefaultQuery returns the session start state.
func DefaultQuery() Query {
	return Filtered{Geo: "HK", HL: "en", Hours: 24}
}

// Sort is the ordering requested from the trends source.
type Sort string

const (
	SortNone      Sort = ""
	SortTitle     Sort = "title"
	SortVolume    Sort = "search-volume"
	SortRecency   Sort = "recency"
	SortRelevance Sort = "relevance"
)

// SortOrders lists the accepted sort values.
var SortOrders = []Sort{SortNone, SortTitle, SortVolume, SortRecency, SortRelevance}

// Valid reports whether s is one of SortOrders.
func (s Sort) Valid() bool {
	for _, o := range SortOrders {
		if s == o {
			return true
		}
	}
	return false
}

// Category is one entry of the fixed trends category table.
type Category struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Categories is the fixed category table. Code 12 is unused upstream.
var Categories = []Category{
	{"1", "Autos and Vehicles"},
	{"2", "Beauty and Fashion"},
	{"3", "Business and Finance"},
	{"4", "Entertainment"},
	{"5", "Food and Drink"},
	{"6", "Games"},
	{"7", "Health"},
	{"8", "Hobbies and Leisure"},
	{"9", "Jobs and Education"},
	{"10", "Law and Government"},
	{"11", "Other"},
	{"13", "Pets and Animals"},
	{"14", "Politics"},
	{"15", "Science"},
	{"16", "Shopping"},
	{"17", "Sports"},
	{"18", "Technology"},
	{"19", "Travel and Transportation"},
	{"20", "Climate"},
}

// LookupCategory returns the category with the given code.
func LookupCategory(code string) (Category, bool) {
	for _, c := range Categories {
		if c.Code == code {
			return c, true
		}
	}
	return Category{}, false
}
