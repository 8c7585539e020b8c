package query

import (
	"github.com/robertmeta/trends-cli/model"
)

// Build constructs a query from a set of raw field values, starting from
// base. Location and language are applied first, then the mode switch,
// then the remaining fields in model.Fields order. Any rejected field aborts
// the build and base is returned.
func Build(base model.Query, values map[string]string, mode model.Mode) (model.Query, error) {
	for field, raw := range values {
		if !isKnown(field) {
			return base, &model.ParseError{Field: field, Value: raw, Err: model.ErrUnknownField}
		}
	}

	q := base
	var err error

	for _, field := range []string{model.FieldGeo, model.FieldLanguage} {
		if raw, ok := values[field]; ok {
			if q, err = Update(q, field, raw); err != nil {
				return base, err
			}
		}
	}

	q = SwitchMode(q, mode)

	for _, field := range model.Fields {
		if field == model.FieldGeo || field == model.FieldLanguage {
			continue
		}
		raw, ok := values[field]
		if !ok {
			continue
		}
		if q, err = Update(q, field, raw); err != nil {
			return base, err
		}
	}

	return q, nil
}

func isKnown(field string) bool {
	for _, f := range model.Fields {
		if f == field {
			return true
		}
	}
	return false
}
