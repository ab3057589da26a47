package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
	"github.com/qwzhou89/foodcrawler/internal/page"
)

const (
	selBizHeader      = "div.biz-page-header-left"
	selBizName        = "div.biz-page-header-left h1"
	selAlterNames     = "div.biz-page-header-left span.alternate-names"
	selBizRating      = "div.biz-rating.biz-rating-very-large"
	selRatingStars    = "div.i-stars"
	selHistogram      = "td.histogram_count"
	selCategory       = "div.biz-page-header-left span.category-str-list a"
	selAddress        = "div.street-address address"
	selPhone          = "span.biz-phone"
	selMapImage       = "div.biz-map-directions img"
	selWebsite        = "div.biz-website a"
	selOtherLanguages = `div.feed div[class*="feed_language"] div.dropdown_item a`
)

// canonicalPrefix identifies the crawled site in its own redirect links.
// External website links are wrapped in a redirect whose query carries the
// real destination under a key beginning with this prefix.
const canonicalPrefix = "https://www.yelp.com"

// Restaurant handles restaurant detail pages. Field groups are extracted
// independently: a malformed fragment degrades that field to its zero value
// and is logged, while the record is still produced. Only a missing name
// fails the whole task.
type Restaurant struct {
	dedup  crawl.DedupSet
	ids    crawl.IDGenerator
	logger *zap.Logger
}

// NewRestaurant constructs a Restaurant extractor.
func NewRestaurant(dedup crawl.DedupSet, ids crawl.IDGenerator, logger *zap.Logger) *Restaurant {
	return &Restaurant{dedup: dedup, ids: ids, logger: logger}
}

// fieldGroup is one independently recoverable extraction step.
type fieldGroup struct {
	name string
	fn   func() error
}

// Extract builds the restaurant record, its on-page reviews, and follow-up
// review-page tasks.
func (e *Restaurant) Extract(_ context.Context, doc *page.Document, task crawl.Task) (Output, error) {
	id, err := e.ids.NewID()
	if err != nil {
		return Output{}, fmt.Errorf("restaurant id: %w", err)
	}

	restaurant := &crawl.Restaurant{
		ID:          id,
		City:        task.City,
		URL:         doc.URL(),
		RatingCount: "0,0,0,0,0",
		TaskID:      task.ID,
	}

	// The name is the one field without a fallback: a page where it cannot
	// be found is not a restaurant page, and the task is left unfinished.
	name := strings.TrimSpace(doc.Find(selBizName).First().Text())
	if name == "" {
		return Output{}, fmt.Errorf("restaurant name not found at %s", doc.URL())
	}
	restaurant.Name = name

	out := Output{Restaurant: restaurant}

	groups := []fieldGroup{
		{"alter_names", func() error { return e.extractAlterNames(doc, restaurant) }},
		{"rating", func() error { return e.extractRating(doc, restaurant) }},
		{"category", func() error { return e.extractCategory(doc, restaurant) }},
		{"address", func() error { return e.extractAddress(doc, restaurant) }},
		{"phone", func() error { return e.extractPhone(doc, restaurant) }},
		{"map", func() error { return e.extractCoordinates(doc, restaurant) }},
		{"website", func() error { return e.extractHostURL(doc, restaurant) }},
		{"reviews", func() error {
			reviews, err := parseReviewBlocks(doc, e.ids, task.ID, "", false)
			if err != nil {
				return err
			}
			out.Reviews = reviews
			return nil
		}},
		{"other_languages", func() error {
			tasks, err := e.extractLanguageTasks(doc, task)
			if err != nil {
				return err
			}
			out.Tasks = tasks
			return nil
		}},
	}

	for _, g := range groups {
		if err := g.fn(); err != nil {
			e.logger.Warn("field extraction failed",
				zap.String("group", g.name),
				zap.String("url", doc.URL()),
				zap.Error(err),
			)
		}
	}

	return out, nil
}

func (e *Restaurant) extractAlterNames(doc *page.Document, r *crawl.Restaurant) error {
	var names []string
	doc.Find(selAlterNames).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			names = append(names, t)
		}
	})
	r.AlterNames = strings.Join(names, "|")
	return nil
}

func (e *Restaurant) extractRating(doc *page.Document, r *crawl.Restaurant) error {
	block := doc.Find(selBizRating).First()
	title, ok := block.Find(selRatingStars).First().Attr("title")
	if !ok {
		return fmt.Errorf("rating stars not found")
	}
	rating, err := parseScaledRating(strings.TrimSpace(title))
	if err != nil {
		return err
	}
	r.Rating = rating

	var buckets []string
	doc.Find(selHistogram).Each(func(_ int, s *goquery.Selection) {
		buckets = append(buckets, strings.TrimSpace(s.Text()))
	})
	if len(buckets) > 0 {
		r.RatingCount = strings.Join(buckets, "|")
	}

	countText := strings.TrimSpace(block.Find("span").First().Text())
	count, err := parseFirstInt(countText)
	if err != nil {
		return err
	}
	r.ReviewCount = count
	return nil
}

func (e *Restaurant) extractCategory(doc *page.Document, r *crawl.Restaurant) error {
	var categories []string
	doc.Find(selCategory).Each(func(_ int, s *goquery.Selection) {
		categories = append(categories, strings.TrimSpace(s.Text()))
	})
	if len(categories) == 0 {
		return fmt.Errorf("category list not found")
	}
	r.Category = strings.Join(categories, "|")
	return nil
}

func (e *Restaurant) extractAddress(doc *page.Document, r *crawl.Restaurant) error {
	address := strings.TrimSpace(doc.Find(selAddress).First().Text())
	if address == "" {
		return fmt.Errorf("address not found")
	}
	r.Address = strings.Join(strings.Fields(address), " ")
	return nil
}

func (e *Restaurant) extractPhone(doc *page.Document, r *crawl.Restaurant) error {
	phone := strings.TrimSpace(doc.Find(selPhone).First().Text())
	if phone == "" {
		return fmt.Errorf("phone not found")
	}
	r.Phone = phone
	return nil
}

// extractCoordinates pulls latitude/longitude out of the static map image
// URL, which carries them in its "center" query parameter.
func (e *Restaurant) extractCoordinates(doc *page.Document, r *crawl.Restaurant) error {
	src, ok := doc.Find(selMapImage).First().Attr("src")
	if !ok {
		return fmt.Errorf("map image not found")
	}
	u, err := url.Parse(src)
	if err != nil {
		return fmt.Errorf("parse map url: %w", err)
	}
	center := u.Query().Get("center")
	lat, lng, found := strings.Cut(center, ",")
	if !found {
		return fmt.Errorf("map url has no center coordinates: %q", src)
	}
	r.Latitude, r.Longitude = lat, lng
	return nil
}

// extractHostURL unwraps the restaurant's own website from the site's
// redirect link. The redirect URL, parsed as a raw query string, carries the
// destination as the value of the key that begins with the site's canonical
// prefix.
func (e *Restaurant) extractHostURL(doc *page.Document, r *crawl.Restaurant) error {
	href, ok := doc.Find(selWebsite).First().Attr("href")
	if !ok {
		return fmt.Errorf("website link not found")
	}
	resolved := doc.AbsoluteURL(href)
	values, err := url.ParseQuery(resolved)
	if err != nil {
		return fmt.Errorf("parse website redirect: %w", err)
	}
	for key, vals := range values {
		if strings.HasPrefix(key, canonicalPrefix) && len(vals) > 0 {
			r.HostURL = vals[0]
			return nil
		}
	}
	return fmt.Errorf("website redirect carries no destination: %q", resolved)
}

// extractLanguageTasks emits one review-page task per "view in another
// language" link, deduplicated like every other discovered URL.
func (e *Restaurant) extractLanguageTasks(doc *page.Document, task crawl.Task) ([]crawl.Task, error) {
	var tasks []crawl.Task
	var taskErr error
	doc.Find(selOtherLanguages).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		reviewURL := doc.AbsoluteURL(href)
		if reviewURL == "" || !e.dedup.MarkIfNew(reviewURL) {
			return true
		}
		id, err := e.ids.NewID()
		if err != nil {
			taskErr = fmt.Errorf("task id: %w", err)
			return false
		}
		tasks = append(tasks, crawl.Task{
			ID:       id,
			City:     task.City,
			URL:      reviewURL,
			Type:     crawl.TaskTypeReview,
			ParentID: task.ID,
		})
		return true
	})
	if taskErr != nil {
		return nil, taskErr
	}
	return tasks, nil
}
