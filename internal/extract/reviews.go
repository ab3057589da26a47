package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
	"github.com/qwzhou89/foodcrawler/internal/page"
)

// Selectors shared by the restaurant page and the secondary-language review
// pages, which render review blocks identically.
const (
	selReviewBlock      = "div.review-content"
	selReviewStars      = "div.i-stars"
	selReviewQualifier  = "span.rating-qualifier"
	selReviewText       = "p"
	selReviewImageLinks = "ul > li > div > a"
	selReviewImages     = "ul > li > div > img"
)

// parseReviewBlocks extracts every review block in the document. Any single
// malformed block fails the whole batch; the caller drops it and logs, which
// is the review-batch error contract.
//
// localeDates selects locale-aware date parsing (review pages); the
// restaurant page always renders US-format dates regardless of the review's
// language.
func parseReviewBlocks(
	doc *page.Document,
	ids crawl.IDGenerator,
	taskID string,
	restaurantID string,
	localeDates bool,
) ([]crawl.Review, error) {
	var reviews []crawl.Review
	var parseErr error

	doc.Find(selReviewBlock).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		review, err := parseReviewBlock(doc, block, ids, taskID, restaurantID, localeDates)
		if err != nil {
			parseErr = err
			return false
		}
		reviews = append(reviews, review)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return reviews, nil
}

func parseReviewBlock(
	doc *page.Document,
	block *goquery.Selection,
	ids crawl.IDGenerator,
	taskID string,
	restaurantID string,
	localeDates bool,
) (crawl.Review, error) {
	id, err := ids.NewID()
	if err != nil {
		return crawl.Review{}, fmt.Errorf("review id: %w", err)
	}

	// A block without a star label keeps the sentinel rating; a label that
	// exists but cannot be parsed poisons the batch.
	rating := crawl.ReviewRatingUnset
	if title, ok := block.Find(selReviewStars).First().Attr("title"); ok {
		scaled, err := parseScaledRating(strings.TrimSpace(title))
		if err != nil {
			return crawl.Review{}, err
		}
		rating = float64(scaled)
	}

	dateText := strings.TrimSpace(block.Find(selReviewQualifier).First().Text())
	if dateText == "" {
		return crawl.Review{}, fmt.Errorf("review block has no date")
	}

	language, _ := block.Find(selReviewText).First().Attr("lang")
	dateLang := language
	if !localeDates {
		// Restaurant pages render dates in the site default locale even for
		// foreign-language reviews.
		dateLang = ""
	}
	date, err := parseReviewDate(dateLang, dateText)
	if err != nil {
		return crawl.Review{}, err
	}

	var lines []string
	block.Find(selReviewText).Each(func(_ int, p *goquery.Selection) {
		for _, line := range strings.Split(p.Text(), "\n") {
			lines = append(lines, strings.TrimSpace(line))
		}
	})
	content := strings.Join(lines, "\n")

	review := crawl.Review{
		ID:           id,
		RestaurantID: restaurantID,
		Rating:       rating,
		Language:     language,
		Content:      []byte(content),
		Date:         date,
		TaskID:       taskID,
	}

	// Image URLs are only recorded when the photo list actually links out;
	// bare thumbnails without an anchor are skipped.
	if block.Find(selReviewImageLinks).Length() > 0 {
		var urls []string
		block.Find(selReviewImages).Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok {
				if abs := doc.AbsoluteURL(src); abs != "" {
					urls = append(urls, abs)
				}
			}
		})
		review.Images = strings.Join(urls, " ")
	}

	return review, nil
}
