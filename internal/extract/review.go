package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
	"github.com/qwzhou89/foodcrawler/internal/page"
)

// restaurantResolver is the slice of the record store review extraction
// needs: finding the restaurant a review-page task belongs to.
type restaurantResolver interface {
	RestaurantByTaskID(ctx context.Context, taskID string) (crawl.Restaurant, error)
}

// Review handles secondary-language review pages. The owning restaurant is
// resolved through the task's parent, and dates are parsed with the layout
// of the page's language.
type Review struct {
	restaurants restaurantResolver
	ids         crawl.IDGenerator
	logger      *zap.Logger
}

// NewReview constructs a Review extractor.
func NewReview(restaurants restaurantResolver, ids crawl.IDGenerator, logger *zap.Logger) *Review {
	return &Review{restaurants: restaurants, ids: ids, logger: logger}
}

// Extract resolves the parent restaurant and parses every review block with
// locale-aware dates. A missing parent fails the task; it stays unfinished
// until the restaurant row exists.
func (e *Review) Extract(ctx context.Context, doc *page.Document, task crawl.Task) (Output, error) {
	if task.ParentID == "" {
		return Output{}, fmt.Errorf("review task %s has no parent", task.ID)
	}
	restaurant, err := e.restaurants.RestaurantByTaskID(ctx, task.ParentID)
	if err != nil {
		return Output{}, fmt.Errorf("resolve parent restaurant for task %s: %w", task.ID, err)
	}

	reviews, err := parseReviewBlocks(doc, e.ids, task.ID, restaurant.ID, true)
	if err != nil {
		// A review page produces nothing but its batch, so a dropped batch
		// leaves the task unfinished and eligible for a later attempt.
		e.logger.Warn("review batch dropped",
			zap.String("url", doc.URL()),
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
		return Output{}, fmt.Errorf("review batch: %w", err)
	}

	return Output{Reviews: reviews}, nil
}
