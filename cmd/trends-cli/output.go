package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/robertmeta/trends-cli/model"
)

// relatedShown is how many related queries the summary lists per topic.
const relatedShown = 3

var timeNow = time.Now

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// outputJSONLine writes v as a single line, for streaming output.
func outputJSONLine(v interface{}) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}

func printSummary(w io.Writer, r *model.TrendsResult) error {
	if r == nil {
		_, err := fmt.Fprintln(w, "No trends loaded.")
		return err
	}

	rule := strings.Repeat("=", 50)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Trends for %s (%s)\n", r.Location, r.Language)
	fmt.Fprintf(&b, "Total trends: %d\n", r.TotalCount)
	if ts, err := r.ParsedTimestamp(); err == nil {
		fmt.Fprintf(&b, "Timestamp: %s\n", ts.Format(time.DateTime))
	} else if r.Timestamp != "" {
		fmt.Fprintf(&b, "Timestamp: %s\n", r.Timestamp)
	}
	if r.SourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n", r.SourceURL)
	}
	fmt.Fprintf(&b, "%s\n", rule)

	for i := range r.Topics {
		t := &r.Topics[i]
		fmt.Fprintf(&b, "\n%d. %s\n", t.DisplayRank(i), t.Title)
		if t.SearchVolume != "" {
			fmt.Fprintf(&b, "   Search Volume: %s\n", t.SearchVolume)
		}
		if t.ChangePercentage != "" {
			fmt.Fprintf(&b, "   Change: %s\n", t.ChangePercentage)
		}
		if related, more := t.TopRelated(relatedShown); len(related) > 0 {
			line := strings.Join(related, ", ")
			if more > 0 {
				line += fmt.Sprintf(" (+%d more)", more)
			}
			fmt.Fprintf(&b, "   Related: %s\n", line)
		}
		if t.URL != "" {
			fmt.Fprintf(&b, "   URL: %s\n", t.URL)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
