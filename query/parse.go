package query

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/robertmeta/trends-cli/model"
)

var (
	// hoursPattern matches a plain base-10 count such as "4" or "168".
	hoursPattern = regexp.MustCompile(`^\d+$`)

	geoPattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

	// languagePattern matches "en", "zh-TW", "pt_BR".
	languagePattern = regexp.MustCompile(`^[A-Za-z]{2,3}([-_][A-Za-z]{2,4})?$`)
)

// ParseHours parses a lookback window. Empty input means absent and yields 0.
func ParseHours(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if !hoursPattern.MatchString(s) {
		return 0, model.ErrInvalidHours
	}

	hours, err := strconv.Atoi(s)
	if err != nil || hours <= 0 {
		return 0, model.ErrInvalidHours
	}
	return hours, nil
}

// ParseGeo validates a country code and returns it upper-cased.
func ParseGeo(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if !geoPattern.MatchString(s) {
		return "", model.ErrInvalidGeo
	}
	return strings.ToUpper(s), nil
}

// ParseLanguage validates a language code.
func ParseLanguage(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if !languagePattern.MatchString(s) {
		return "", model.ErrInvalidLanguage
	}
	return s, nil
}

// ParseCategory validates a category code against the fixed table.
func ParseCategory(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if _, ok := model.LookupCategory(s); !ok {
		return "", model.ErrInvalidCategory
	}
	return s, nil
}

// ParseSort validates a sort order.
func ParseSort(s string) (model.Sort, error) {
	sort := model.Sort(s)
	if !sort.Valid() {
		return model.SortNone, model.ErrInvalidSort
	}
	return sort, nil
}

// ParseSourceURL validates a user supplied source URL.
func ParseSourceURL(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", model.ErrInvalidURL
	}
	return s, nil
}
