package matching_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rongwang/yana-server/internal/geo"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sad   int64 = 1
	happy int64 = 2
	angry int64 = 3
)

var (
	emotionNames = map[int64]string{sad: "Sad", happy: "Happy", angry: "Angry"}
	origin       = geo.Point{Lat: 40.7128, Lon: -74.0060}
	baseTime     = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
)

// fakeSource mirrors the ordering contract of the repository
type fakeSource struct {
	records []models.SharedEmotion
	err     error
}

func (f *fakeSource) add(id int64, user string, emotion int64, at time.Time, active bool, p *geo.Point) {
	r := models.SharedEmotion{
		ID:           id,
		UserID:       user,
		UserPublicID: "public-" + user,
		EmotionID:    emotion,
		EmotionName:  emotionNames[emotion],
		CreatedAt:    at,
		IsActive:     active,
	}
	if p != nil {
		lat, lon := p.Lat, p.Lon
		r.Latitude, r.Longitude = &lat, &lon
	}
	f.records = append(f.records, r)
}

func (f *fakeSource) active(filter func(models.SharedEmotion) bool) []models.SharedEmotion {
	out := []models.SharedEmotion{}
	for _, r := range f.records {
		if r.IsActive && filter(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *fakeSource) ActiveEmotionsForUser(_ context.Context, userID string) ([]models.SharedEmotion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.active(func(r models.SharedEmotion) bool { return r.UserID == userID }), nil
}

func (f *fakeSource) ActiveEmotions(_ context.Context) ([]models.SharedEmotion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.active(func(models.SharedEmotion) bool { return true }), nil
}

func ids(records []models.SharedEmotion) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestCurrentEmotionLatestWins(t *testing.T) {
	src := &fakeSource{}
	src.add(1, "alice", happy, baseTime.Add(-2*time.Hour), true, &origin)
	src.add(2, "alice", sad, baseTime.Add(-1*time.Hour), true, &origin)
	src.add(3, "alice", angry, baseTime, false, &origin)
	src.add(4, "bob", happy, baseTime.Add(time.Hour), true, &origin)

	engine := matching.NewEngine(src, nil)

	current, err := engine.CurrentEmotion(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.ID, "inactive records are never current")
	assert.Equal(t, "Sad", current.EmotionName)
}

func TestCurrentEmotionTieBreaksOnID(t *testing.T) {
	src := &fakeSource{}
	src.add(7, "alice", happy, baseTime, true, &origin)
	src.add(9, "alice", sad, baseTime, true, &origin)
	src.add(8, "alice", angry, baseTime, true, &origin)

	current, err := matching.NewEngine(src, nil).CurrentEmotion(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(9), current.ID)
}

func TestCurrentEmotionNotFound(t *testing.T) {
	src := &fakeSource{}
	src.add(1, "alice", happy, baseTime, false, &origin)

	_, err := matching.NewEngine(src, nil).CurrentEmotion(context.Background(), "alice")
	assert.ErrorIs(t, err, matching.ErrNoCurrentEmotion)

	_, err = matching.NewEngine(src, nil).CurrentEmotion(context.Background(), "nobody")
	assert.ErrorIs(t, err, matching.ErrNoCurrentEmotion)
}

func TestCurrentEmotionSourceError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := matching.NewEngine(&fakeSource{err: boom}, nil).CurrentEmotion(context.Background(), "alice")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, matching.ErrNoCurrentEmotion)
}

func TestLatestPerUser(t *testing.T) {
	src := &fakeSource{}
	src.add(1, "alice", happy, baseTime.Add(-3*time.Hour), true, &origin)
	src.add(2, "bob", sad, baseTime.Add(-2*time.Hour), true, &origin)
	src.add(3, "alice", angry, baseTime.Add(-1*time.Hour), true, &origin)
	src.add(4, "carol", sad, baseTime, true, &origin)
	src.add(5, "bob", happy, baseTime.Add(time.Hour), false, &origin)

	latest := matching.LatestPerUser(src.records, "")
	assert.Equal(t, []int64{4, 3, 2}, ids(latest), "one record per user, most recent first")

	byUser := matching.LatestPerUserMap(src.records, "carol")
	assert.Len(t, byUser, 2)
	assert.Equal(t, int64(3), byUser["alice"].ID)
	assert.Equal(t, int64(2), byUser["bob"].ID)
	_, ok := byUser["carol"]
	assert.False(t, ok, "excluded user is absent")

	assert.Empty(t, matching.LatestPerUser(nil, ""))
}

func TestLatestPerUserDoesNotReorderInput(t *testing.T) {
	src := &fakeSource{}
	src.add(1, "alice", happy, baseTime.Add(-time.Hour), true, &origin)
	src.add(2, "bob", sad, baseTime, true, &origin)

	_ = matching.LatestPerUser(src.records, "")
	assert.Equal(t, []int64{1, 2}, ids(src.records))
}

// Three users share Happy, Sad and Angry at the same spot; the Happy user
// later shares Sad, superseding Happy.
func endToEndSource() *fakeSource {
	src := &fakeSource{}
	src.add(1, "u1", happy, baseTime.Add(-48*time.Hour), true, &origin)
	src.add(2, "u1", sad, baseTime.Add(-1*time.Hour), true, &origin)
	src.add(3, "u2", angry, baseTime, true, &origin)
	src.add(4, "requester", sad, baseTime.Add(-10*time.Minute), true, &origin)
	return src
}

func TestNearbyWithoutEmotionMatching(t *testing.T) {
	engine := matching.NewEngine(endToEndSource(), nil)

	results, err := engine.NearbyByCoordinates(context.Background(), matching.NearbyQuery{
		Center:      origin,
		RadiusKm:    1,
		RequesterID: "requester",
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{2, 3}, ids(results), "Sad and Angry, never the superseded Happy")
}

func TestNearbyMatchesRequesterEmotion(t *testing.T) {
	engine := matching.NewEngine(endToEndSource(), nil)

	results, err := engine.NearbyByCoordinates(context.Background(), matching.NearbyQuery{
		Center:       origin,
		RadiusKm:     1,
		RequesterID:  "requester",
		MatchEmotion: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{2}, ids(results))
}

func TestNearbyRequesterWithoutEmotionIsUnrestricted(t *testing.T) {
	engine := matching.NewEngine(endToEndSource(), nil)

	results, err := engine.NearbyByCoordinates(context.Background(), matching.NearbyQuery{
		Center:       origin,
		RadiusKm:     1,
		RequesterID:  "newcomer",
		MatchEmotion: true,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{2, 3, 4}, ids(results))
}

func TestNearbyAnonymousIncludesEveryone(t *testing.T) {
	engine := matching.NewEngine(endToEndSource(), nil)

	results, err := engine.NearbyByCoordinates(context.Background(), matching.NearbyQuery{
		Center:       origin,
		RadiusKm:     geo.DefaultRadiusKm,
		MatchEmotion: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 4, 2}, ids(results))
}

func TestNearbyFiltersByDistance(t *testing.T) {
	far := geo.Point{Lat: 51.5074, Lon: -0.1278}
	edge := geo.Point{Lat: 40.7228, Lon: -74.0060}

	src := &fakeSource{}
	src.add(1, "near", sad, baseTime, true, &edge)
	src.add(2, "far", sad, baseTime, true, &far)
	src.add(3, "unknown", sad, baseTime, true, nil)

	engine := matching.NewEngine(src, nil)
	radius := geo.Distance(origin, edge)

	results, err := engine.NearbyByCoordinates(context.Background(), matching.NearbyQuery{
		Center:   origin,
		RadiusKm: radius,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(results), "boundary included, far and undecodable excluded")

	results, err = engine.NearbyByCoordinates(context.Background(), matching.NearbyQuery{
		Center:   origin,
		RadiusKm: radius - 1e-9,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestNearbyRejectsInvalidInput(t *testing.T) {
	src := &fakeSource{err: errors.New("must not be queried")}
	engine := matching.NewEngine(src, nil)

	_, err := engine.NearbyByCoordinates(context.Background(), matching.NearbyQuery{
		Center:   geo.Point{Lat: 123, Lon: 0},
		RadiusKm: 5,
	})
	assert.ErrorIs(t, err, geo.ErrInvalidLatitude)

	_, err = engine.NearbyByCoordinates(context.Background(), matching.NearbyQuery{
		Center:   origin,
		RadiusKm: -1,
	})
	assert.ErrorIs(t, err, geo.ErrInvalidRadius)
}

func TestMatchingForRequester(t *testing.T) {
	src := &fakeSource{}
	far := geo.Point{Lat: -33.8688, Lon: 151.2093}
	src.add(1, "a", sad, baseTime, true, &origin)
	src.add(2, "b", sad, baseTime.Add(-time.Hour), true, &far)
	src.add(3, "c", happy, baseTime.Add(-time.Hour), true, &origin)
	// d was Sad but has since moved on to Happy
	src.add(4, "d", sad, baseTime.Add(-2*time.Hour), true, &origin)
	src.add(5, "d", happy, baseTime.Add(-30*time.Minute), true, &origin)
	// e retracted its Sad record and has an older Sad one still active
	src.add(6, "e", sad, baseTime.Add(-3*time.Hour), true, &origin)
	src.add(7, "e", happy, baseTime.Add(-10*time.Minute), false, &origin)

	results, err := matching.NewEngine(src, nil).MatchingForRequester(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 6}, ids(results), "same emotion at any distance, never c or d")
}

func TestMatchingForRequesterErrors(t *testing.T) {
	src := &fakeSource{}
	src.add(1, "b", sad, baseTime, true, &origin)
	engine := matching.NewEngine(src, nil)

	_, err := engine.MatchingForRequester(context.Background(), "")
	assert.ErrorIs(t, err, matching.ErrUnauthenticated)

	results, err := engine.MatchingForRequester(context.Background(), "a")
	assert.ErrorIs(t, err, matching.ErrNoCurrentEmotion, "no emotion is not the same as no matches")
	assert.Nil(t, results)
}

func TestMatchingForRequesterNoMatches(t *testing.T) {
	src := &fakeSource{}
	src.add(1, "a", sad, baseTime, true, &origin)
	src.add(2, "b", happy, baseTime, true, &origin)

	results, err := matching.NewEngine(src, nil).MatchingForRequester(context.Background(), "a")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSummary(t *testing.T) {
	src := &fakeSource{}
	src.add(1, "a", sad, baseTime, true, &origin)
	src.add(2, "a", sad, baseTime.Add(time.Minute), true, &origin)
	src.add(3, "b", happy, baseTime, true, nil)
	src.add(4, "c", angry, baseTime, true, &origin)
	src.add(5, "c", angry, baseTime.Add(time.Minute), false, &origin)

	summary, err := matching.NewEngine(src, nil).Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.EmotionCount{
		{Emotion: "Sad", Count: 2},
		{Emotion: "Angry", Count: 1},
		{Emotion: "Happy", Count: 1},
	}, summary)
}
