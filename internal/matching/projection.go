package matching

import (
	"sort"

	"github.com/rongwang/yana-server/internal/models"
)

// newer reports whether a is more recent than b.
// Equal timestamps are ordered by the higher id.
func newer(a, b models.SharedEmotion) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// LatestPerUser keeps the most recent active record of each user, most recent
// first. Records owned by excludeUserID are dropped when it is not empty.
// The input slice is not modified.
func LatestPerUser(records []models.SharedEmotion, excludeUserID string) []models.SharedEmotion {
	sorted := make([]models.SharedEmotion, 0, len(records))
	for _, r := range records {
		if !r.IsActive {
			continue
		}
		if excludeUserID != "" && r.UserID == excludeUserID {
			continue
		}
		sorted = append(sorted, r)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return newer(sorted[i], sorted[j])
	})

	seen := make(map[string]struct{}, len(sorted))
	latest := make([]models.SharedEmotion, 0, len(sorted))
	for _, r := range sorted {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		latest = append(latest, r)
	}

	return latest
}

// LatestPerUserMap is LatestPerUser keyed by user id
func LatestPerUserMap(records []models.SharedEmotion, excludeUserID string) map[string]models.SharedEmotion {
	latest := LatestPerUser(records, excludeUserID)
	out := make(map[string]models.SharedEmotion, len(latest))
	for _, r := range latest {
		out[r.UserID] = r
	}
	return out
}
