package extract

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
	"github.com/qwzhou89/foodcrawler/internal/page"
)

// Extractor parses one fetched document into records and follow-up tasks.
type Extractor interface {
	Extract(ctx context.Context, doc *page.Document, task crawl.Task) (Output, error)
}

const (
	selPaginationLinks = "div.pagination-links a[href]"
	selSearchResult    = "li.regular-search-result"
	selResultTitle     = "h3.search-result-title"
)

// Listing handles search-result pages: it discovers further result pages and
// restaurant detail pages, producing follow-up tasks for both. It never
// produces domain records.
type Listing struct {
	dedup  crawl.DedupSet
	ids    crawl.IDGenerator
	logger *zap.Logger
}

// NewListing constructs a Listing extractor.
func NewListing(dedup crawl.DedupSet, ids crawl.IDGenerator, logger *zap.Logger) *Listing {
	return &Listing{dedup: dedup, ids: ids, logger: logger}
}

// Extract collects pagination and restaurant links, resolved to absolute
// form and filtered through the dedup set.
func (e *Listing) Extract(_ context.Context, doc *page.Document, task crawl.Task) (Output, error) {
	var out Output

	var linkErr error
	doc.Find(selPaginationLinks).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		pageURL := doc.AbsoluteURL(href)
		if pageURL == "" || !e.dedup.MarkIfNew(pageURL) {
			return true
		}
		t, err := e.newTask(task.City, pageURL, crawl.TaskTypeListing, "")
		if err != nil {
			linkErr = err
			return false
		}
		out.Tasks = append(out.Tasks, t)
		return true
	})
	if linkErr != nil {
		return Output{}, linkErr
	}

	doc.Find(selSearchResult).EachWithBreak(func(_ int, result *goquery.Selection) bool {
		title := result.Find(selResultTitle).First()
		// Unclaimed entries render the name as a bare span instead of a
		// link; there is no detail page to crawl.
		if title.ChildrenFiltered("span").Length() > 0 {
			e.logger.Debug("skipping placeholder result", zap.String("url", doc.URL()))
			return true
		}
		href, ok := title.ChildrenFiltered("a").First().Attr("href")
		if !ok {
			return true
		}
		restaurantURL := doc.AbsoluteURL(href)
		if restaurantURL == "" || !e.dedup.MarkIfNew(restaurantURL) {
			return true
		}
		t, err := e.newTask(task.City, restaurantURL, crawl.TaskTypeRestaurant, "")
		if err != nil {
			linkErr = err
			return false
		}
		out.Tasks = append(out.Tasks, t)
		return true
	})
	if linkErr != nil {
		return Output{}, linkErr
	}

	return out, nil
}

func (e *Listing) newTask(city, url string, typ crawl.TaskType, parentID string) (crawl.Task, error) {
	id, err := e.ids.NewID()
	if err != nil {
		return crawl.Task{}, fmt.Errorf("task id: %w", err)
	}
	return crawl.Task{
		ID:       id,
		City:     city,
		URL:      url,
		Type:     typ,
		ParentID: parentID,
	}, nil
}
