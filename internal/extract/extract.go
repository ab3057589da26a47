// Package extract turns fetched documents into domain records and follow-up
// tasks. One extractor exists per task type; each is a pure transformation
// over the document apart from the dedup set consulted when emitting tasks
// and the parent lookup on review pages.
package extract

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
)

// Output collects everything one document parse produced. The engine commits
// it together with the finished flip of the source task.
type Output struct {
	Tasks      []crawl.Task
	Restaurant *crawl.Restaurant
	Reviews    []crawl.Review
}

var (
	decimalPattern = regexp.MustCompile(`[0-9]+\.[0-9]*`)
	digitsPattern  = regexp.MustCompile(`[0-9]+`)
)

// parseScaledRating extracts the first decimal number embedded in a label
// such as "4.5 star rating" and returns it scaled ×10 and truncated, so one
// decimal digit survives integer storage.
func parseScaledRating(label string) (int, error) {
	m := decimalPattern.FindString(label)
	if m == "" {
		return 0, fmt.Errorf("no decimal rating in %q", label)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rating %q: %w", m, err)
	}
	return int(f * 10), nil
}

// parseFirstInt extracts the first digit run embedded in text, e.g. the
// review count out of "123 reviews".
func parseFirstInt(text string) (int, error) {
	m := digitsPattern.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("no digits in %q", text)
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", m, err)
	}
	return n, nil
}
