// Package seed holds the maintenance tasks run by the admin command:
// catalog and template seeding, admin promotion and test data generation.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/repository"
	"github.com/rongwang/yana-server/internal/service"
	"github.com/rongwang/yana-server/internal/utils"
)

const (
	TestUserPattern  = "testing_frontend"
	TestUserPassword = "testpass123"

	// maxTestUserNumber caps the numeric suffix of generated test accounts
	maxTestUserNumber = 999

	randomEmotionWindow = 30 * 24 * time.Hour
)

// DefaultEmotions is the starter catalog
var DefaultEmotions = []string{
	"Sadness",
	"Loneliness",
	"Distress",
	"Reluctance",
	"Tranquility",
}

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNoReference   = errors.New("user has no shared emotions to use as a reference point")
	ErrNoTestUsers   = errors.New("no test users found")
	ErrEmptyCatalog  = errors.New("no emotions found in the catalog")
	ErrTooManyUsers  = errors.New("test user number limit exceeded")
	ErrInvalidCount  = errors.New("count must be positive")
	ErrInvalidRadius = errors.New("radius must be a finite, non-negative number of degrees")
)

// Seeder runs maintenance tasks against a repository
type Seeder struct {
	repo   repository.Repository
	svc    service.Service
	logger *utils.Logger
	rng    *rand.Rand
	now    func() time.Time
}

// NewSeeder creates a Seeder. Accounts are registered through svc so they get
// hashed passwords and pseudonyms like any other user.
func NewSeeder(repo repository.Repository, svc service.Service, logger *utils.Logger) *Seeder {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Seeder{
		repo:   repo,
		svc:    svc,
		logger: logger,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now:    time.Now,
	}
}

// WithRand replaces the random source, for reproducible runs
func (s *Seeder) WithRand(rng *rand.Rand) *Seeder {
	s.rng = rng
	return s
}

// AddEmotions creates the named emotions that are not in the catalog yet.
// Catalog changes go through the service so the cached catalog is invalidated.
func (s *Seeder) AddEmotions(ctx context.Context, names []string) (int, error) {
	created := 0
	for _, name := range names {
		_, err := s.svc.CreateEmotion(ctx, models.CreateEmotionRequest{Name: name})
		if errors.Is(err, service.ErrConflict) {
			s.logger.Warn("emotion already exists: %s", name)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("error creating emotion %q: %w", name, err)
		}
		s.logger.Info("created emotion: %s", name)
		created++
	}
	return created, nil
}

// DeleteLastEmotions removes the count most recently added catalog entries
func (s *Seeder) DeleteLastEmotions(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	emotions, err := s.repo.ListEmotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing emotions: %w", err)
	}

	deleted := []string{}
	for i := len(emotions) - 1; i >= 0 && len(deleted) < count; i-- {
		if err := s.svc.DeleteEmotion(ctx, emotions[i].ID); err != nil {
			return deleted, fmt.Errorf("error deleting emotion %q: %w", emotions[i].Name, err)
		}
		s.logger.Info("deleted emotion: %s", emotions[i].Name)
		deleted = append(deleted, emotions[i].Name)
	}
	return deleted, nil
}

// TemplateLoadResult counts the outcome of LoadTemplates
type TemplateLoadResult struct {
	New      int
	Existing int
	Invalid  int
}

// LoadTemplates reads a JSON array of {"text": "..."} objects and creates the missing templates
func (s *Seeder) LoadTemplates(ctx context.Context, r io.Reader) (TemplateLoadResult, error) {
	var result TemplateLoadResult

	var entries []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return result, fmt.Errorf("error reading templates file: %w", err)
	}

	for _, entry := range entries {
		raw, ok := entry["text"].(string)
		text := strings.TrimSpace(raw)
		if !ok || text == "" {
			s.logger.Warn("skipping invalid template entry: %v", entry)
			result.Invalid++
			continue
		}

		existing, err := s.repo.GetTemplateByText(ctx, text)
		if err != nil {
			return result, fmt.Errorf("error getting template: %w", err)
		}
		if existing != nil {
			result.Existing++
			continue
		}

		if err := s.repo.CreateTemplate(ctx, &models.SupportMessageTemplate{Text: text}); err != nil {
			return result, fmt.Errorf("error creating template: %w", err)
		}
		result.New++
	}

	return result, nil
}

func (s *Seeder) userByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	return user, nil
}

// MakeAdmin grants admin rights to the user with the given email
func (s *Seeder) MakeAdmin(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.repo.SetUserAdmin(ctx, user.ID, true); err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	s.logger.Info("made %s an admin", user.Email)
	return nil
}

// nextTestUserNumber returns one past the highest number used by pattern
func (s *Seeder) nextTestUserNumber(ctx context.Context, pattern string) (int, error) {
	users, err := s.repo.ListUsersByEmailPrefix(ctx, pattern+"_")
	if err != nil {
		return 0, fmt.Errorf("error listing users: %w", err)
	}

	re := regexp.MustCompile("^" + regexp.QuoteMeta(pattern) + `_(\d+)@`)
	highest := 0
	for _, u := range users {
		if m := re.FindStringSubmatch(u.Email); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}
	return highest + 1, nil
}

var (
	testFirstNames = []string{"John", "Jane"}
	testLastNames  = []string{"Smith", "Doe"}
)

// CreateTestUsers registers count accounts named {pattern}_{n}@example.com, continuing the numbering
func (s *Seeder) CreateTestUsers(ctx context.Context, pattern string, count int) ([]string, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if pattern == "" {
		pattern = TestUserPattern
	}

	start, err := s.nextTestUserNumber(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if start-1+count > maxTestUserNumber {
		return nil, fmt.Errorf("%w: cannot create %d users after %s_%d", ErrTooManyUsers, count, pattern, start-1)
	}

	emails := make([]string, 0, count)
	for i := 0; i < count; i++ {
		email := fmt.Sprintf("%s_%d@example.com", pattern, start+i)
		_, err := s.svc.Register(ctx, models.RegisterRequest{
			Email:    email,
			Password: TestUserPassword,
			Name:     testFirstNames[s.rng.IntN(len(testFirstNames))],
			LastName: testLastNames[s.rng.IntN(len(testLastNames))],
		})
		if err != nil {
			return emails, fmt.Errorf("error creating user %s: %w", email, err)
		}
		s.logger.Info("created test user: %s", email)
		emails = append(emails, email)
	}
	return emails, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// GenerateRandomEmotions scatters count shared emotions from test users within
// radiusDeg degrees of the reference user's latest shared emotion, dated within the last 30 days.
func (s *Seeder) GenerateRandomEmotions(ctx context.Context, email string, count int, radiusDeg float64) (int, error) {
	if count <= 0 {
		return 0, ErrInvalidCount
	}
	if math.IsNaN(radiusDeg) || math.IsInf(radiusDeg, 0) || radiusDeg < 0 {
		return 0, ErrInvalidRadius
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return 0, err
	}

	history, err := s.repo.ListSharedEmotionsForUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("error listing shared emotions: %w", err)
	}
	var ref *models.SharedEmotion
	for i := range history {
		if history[i].HasLocation() {
			ref = &history[i]
			break
		}
	}
	if ref == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoReference, email)
	}

	testers, err := s.repo.ListUsersByEmailPrefix(ctx, TestUserPattern)
	if err != nil {
		return 0, fmt.Errorf("error listing users: %w", err)
	}
	if len(testers) == 0 {
		return 0, ErrNoTestUsers
	}

	emotions, err := s.repo.ListEmotions(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing emotions: %w", err)
	}
	if len(emotions) == 0 {
		return 0, ErrEmptyCatalog
	}

	created := 0
	for i := 0; i < count; i++ {
		emotion := emotions[s.rng.IntN(len(emotions))]
		tester := testers[s.rng.IntN(len(testers))]

		lat := clamp(*ref.Latitude+(s.rng.Float64()*2-1)*radiusDeg, -90, 90)
		lon := clamp(*ref.Longitude+(s.rng.Float64()*2-1)*radiusDeg, -180, 180)
		age := time.Duration(s.rng.Int64N(int64(randomEmotionWindow)))

		se := &models.SharedEmotion{
			UserID:    tester.ID,
			EmotionID: emotion.ID,
			Latitude:  &lat,
			Longitude: &lon,
			CreatedAt: s.now().UTC().Add(-age),
		}
		if err := s.repo.CreateSharedEmotion(ctx, se); err != nil {
			s.logger.Error("error creating emotion: %v", err)
			continue
		}
		s.logger.Debug("created %s for %s at (%.6f, %.6f)", emotion.Name, tester.Email, lat, lon)
		created++
	}

	return created, nil
}

// ClearUserEmotions deletes the shared emotions of the user with email, or every
// shared emotion when email is empty.
func (s *Seeder) ClearUserEmotions(ctx context.Context, email string) (int64, error) {
	userID := ""
	if email != "" {
		user, err := s.userByEmail(ctx, email)
		if err != nil {
			return 0, err
		}
		userID = user.ID
	}

	n, err := s.repo.DeleteSharedEmotions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting shared emotions: %w", err)
	}
	return n, nil
}
