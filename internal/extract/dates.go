package extract

import (
	"fmt"
	"time"
)

// Review dates render in the locale of the review's language. The layout is
// chosen by the case-sensitive language code; anything unlisted (including
// "en") uses the US month/day/year form.
var dateLayouts = map[string]string{
	"ja": "2006/1/2",
	"zh": "2006/1/2",
	"es": "2/1/2006",
	"fr": "2/1/2006",
	"it": "2/1/2006",
	"pt": "2/1/2006",
	"de": "2.1.2006",
	"nb": "2.1.2006",
	"tr": "2.1.2006",
	"fi": "2.1.2006",
	"da": "2.1.2006",
	"sv": "2006-1-2",
	"pl": "2-1-2006",
	"nl": "2-1-2006",
}

const defaultDateLayout = "1/2/2006"

// parseReviewDate parses a review date string using the layout expected for
// the given language code.
func parseReviewDate(language, value string) (time.Time, error) {
	layout, ok := dateLayouts[language]
	if !ok {
		layout = defaultDateLayout
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse review date %q (lang %q): %w", value, language, err)
	}
	return t, nil
}
