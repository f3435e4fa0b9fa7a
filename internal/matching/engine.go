// Package matching resolves users' current emotions and answers the nearby,
// matching and summary queries built on top of them.
//
// The engine only reads through Source, so it has no knowledge of how records
// are stored or how their coordinates are encrypted.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rongwang/yana-server/internal/geo"
	"github.com/rongwang/yana-server/internal/metrics"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/utils"
)

var (
	// ErrNoCurrentEmotion is returned when a user has no active shared emotion
	ErrNoCurrentEmotion = errors.New("no emotions found for this user")

	// ErrUnauthenticated is returned when a query needs a requester and none was given
	ErrUnauthenticated = errors.New("authentication required")
)

// Source is the read side of the shared emotion store.
// Both methods return active records only, ordered by created_at DESC, id DESC.
type Source interface {
	ActiveEmotionsForUser(ctx context.Context, userID string) ([]models.SharedEmotion, error)
	ActiveEmotions(ctx context.Context) ([]models.SharedEmotion, error)
}

// NearbyQuery parameterises NearbyByCoordinates
type NearbyQuery struct {
	Center   geo.Point
	RadiusKm float64
	// RequesterID is empty for anonymous requests
	RequesterID string
	// MatchEmotion restricts results to the requester's current emotion, if any
	MatchEmotion bool
}

// Engine composes the current emotion resolver, the latest-per-user
// projection and the proximity filter.
type Engine struct {
	source Source
	logger *utils.Logger
}

// NewEngine creates a new Engine
func NewEngine(source Source, logger *utils.Logger) *Engine {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Engine{
		source: source,
		logger: logger,
	}
}

// CurrentEmotion returns the user's most recent active record
func (e *Engine) CurrentEmotion(ctx context.Context, userID string) (*models.SharedEmotion, error) {
	records, err := e.source.ActiveEmotionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading emotions for user: %w", err)
	}

	var current *models.SharedEmotion
	for i := range records {
		r := &records[i]
		if !r.IsActive || r.UserID != userID {
			continue
		}
		if current == nil || newer(*r, *current) {
			current = r
		}
	}

	if current == nil {
		return nil, ErrNoCurrentEmotion
	}

	result := *current
	return &result, nil
}

// NearbyByCoordinates returns the latest record of every other user whose
// location lies within the query radius.
func (e *Engine) NearbyByCoordinates(ctx context.Context, q NearbyQuery) ([]models.SharedEmotion, error) {
	if err := geo.ValidatePoint(q.Center); err != nil {
		return nil, err
	}
	if err := geo.ValidateRadius(q.RadiusKm); err != nil {
		return nil, err
	}

	var (
		restrict       bool
		matchEmotionID int64
	)
	if q.MatchEmotion && q.RequesterID != "" {
		current, err := e.CurrentEmotion(ctx, q.RequesterID)
		switch {
		case err == nil:
			restrict, matchEmotionID = true, current.EmotionID
		case errors.Is(err, ErrNoCurrentEmotion):
			// no restriction
		default:
			return nil, err
		}
	}

	records, err := e.source.ActiveEmotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading active emotions: %w", err)
	}

	results := make([]models.SharedEmotion, 0)
	for _, r := range LatestPerUser(records, q.RequesterID) {
		if !r.HasLocation() {
			e.logger.Debug("skipping shared emotion %d: coordinates unavailable", r.ID)
			continue
		}
		if !geo.Within(q.Center, geo.Point{Lat: *r.Latitude, Lon: *r.Longitude}, q.RadiusKm) {
			continue
		}
		if restrict && r.EmotionID != matchEmotionID {
			continue
		}
		results = append(results, r)
	}

	metrics.NearbyResults.Observe(float64(len(results)))
	return results, nil
}

// MatchingForRequester returns the latest record of every other user whose
// current emotion equals the requester's. No distance filter is applied.
func (e *Engine) MatchingForRequester(ctx context.Context, requesterID string) ([]models.SharedEmotion, error) {
	if requesterID == "" {
		return nil, ErrUnauthenticated
	}

	current, err := e.CurrentEmotion(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	records, err := e.source.ActiveEmotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading active emotions: %w", err)
	}

	results := make([]models.SharedEmotion, 0)
	for _, r := range LatestPerUser(records, requesterID) {
		if r.EmotionID == current.EmotionID {
			results = append(results, r)
		}
	}

	return results, nil
}

// Summary counts active records per emotion name, without deduplication.
// Sorted by count descending, then name.
func (e *Engine) Summary(ctx context.Context) ([]models.EmotionCount, error) {
	records, err := e.source.ActiveEmotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading active emotions: %w", err)
	}

	counts := make(map[string]int)
	for _, r := range records {
		if r.IsActive {
			counts[r.EmotionName]++
		}
	}

	summary := make([]models.EmotionCount, 0, len(counts))
	for name, n := range counts {
		summary = append(summary, models.EmotionCount{Emotion: name, Count: n})
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Count != summary[j].Count {
			return summary[i].Count > summary[j].Count
		}
		return summary[i].Emotion < summary[j].Emotion
	})

	return summary, nil
}
