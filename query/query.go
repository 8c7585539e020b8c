// Package query implements the trends query model: field updates, mode
// switching and request serialization.
package query

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robertmeta/trends-cli/model"
)

// Update merges a single field change into q and returns the new query.
// An empty value clears the field. On error q is returned unchanged and the
// error is a *model.ParseError.
func Update(q model.Query, field, raw string) (model.Query, error) {
	value := strings.TrimSpace(raw)

	switch cur := q.(type) {
	case model.Filtered:
		next, err := updateFiltered(cur, field, value)
		if err != nil {
			return q, &model.ParseError{Field: field, Value: raw, Err: err}
		}
		return next, nil
	case model.URLDriven:
		next, err := updateURLDriven(cur, field, value)
		if err != nil {
			return q, &model.ParseError{Field: field, Value: raw, Err: err}
		}
		return next, nil
	default:
		return q, fmt.Errorf("unsupported query type %T", q)
	}
}

func updateFiltered(f model.Filtered, field, value string) (model.Filtered, error) {
	var err error
	switch field {
	case model.FieldGeo:
		f.Geo, err = ParseGeo(value)
	case model.FieldLanguage:
		f.HL, err = ParseLanguage(value)
	case model.FieldHours:
		f.Hours, err = ParseHours(value)
	case model.FieldCategory:
		f.Category, err = ParseCategory(value)
	case model.FieldSort:
		f.Sort, err = ParseSort(value)
	case model.FieldStatus:
		f.Status = value
	case model.FieldURL:
		err = model.ErrFieldNotInMode
	default:
		err = model.ErrUnknownField
	}
	return f, err
}

func updateURLDriven(u model.URLDriven, field, value string) (model.URLDriven, error) {
	var err error
	switch field {
	case model.FieldGeo:
		u.Geo, err = ParseGeo(value)
	case model.FieldLanguage:
		u.HL, err = ParseLanguage(value)
	case model.FieldURL:
		u.URL, err = ParseSourceURL(value)
	case model.FieldHours, model.FieldCategory, model.FieldSort, model.FieldStatus:
		err = model.ErrFieldNotInMode
	default:
		err = model.ErrUnknownField
	}
	return u, err
}

// SwitchMode reconciles q into the target mode. Only geo and hl survive a
// change of mode; switching to the current mode returns q as is.
func SwitchMode(q model.Query, target model.Mode) model.Query {
	if q.Mode() == target {
		return q
	}
	switch target {
	case model.ModeURL:
		return model.URLDriven{Geo: q.Location(), HL: q.Language()}
	default:
		return model.Filtered{Geo: q.Location(), HL: q.Language()}
	}
}

// Serialize encodes the present fields of q as a URL query string with keys
// in sorted order.
func Serialize(q model.Query) string {
	values := url.Values{}
	for key, value := range q.Values() {
		values.Set(key, value)
	}
	return values.Encode()
}
