package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/utils"
)

// MemoryRepository is an in-process Repository for tests. No binary constructs it.
// Coordinates go through the same codec as in PostgresRepository.
type MemoryRepository struct {
	mu     sync.RWMutex
	cipher coordinateCipher
	nextID int64

	users     map[string]models.User
	emotions  map[int64]models.Emotion
	shared    map[int64]sharedEmotionRow
	templates map[int64]models.SupportMessageTemplate
	messages  map[int64]models.SupportMessage
	resources map[int64]models.HelpResource
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository(codec *encryption.CoordinateCodec, logger *utils.Logger) *MemoryRepository {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &MemoryRepository{
		cipher:    coordinateCipher{codec: codec, logger: logger},
		users:     make(map[string]models.User),
		emotions:  make(map[int64]models.Emotion),
		shared:    make(map[int64]sharedEmotionRow),
		templates: make(map[int64]models.SupportMessageTemplate),
		messages:  make(map[int64]models.SupportMessage),
		resources: make(map[int64]models.HelpResource),
	}
}

var errDuplicate = errors.New("duplicate key value violates unique constraint")

func (r *MemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// User repository methods
func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) || (user.PublicID != "" && u.PublicID == user.PublicID) {
			return errDuplicate
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.AvatarID == 0 {
		user.AvatarID = models.DefaultAvatarID
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users[user.ID] = *user
	return nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryRepository) PublicIDExists(ctx context.Context, publicID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.PublicID == publicID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) updateUser(userID string, fn func(*models.User)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[userID]; ok {
		fn(&u)
		u.UpdatedAt = time.Now().UTC()
		r.users[userID] = u
	}
}

func (r *MemoryRepository) SetUserAdmin(ctx context.Context, userID string, isAdmin bool) error {
	r.updateUser(userID, func(u *models.User) { u.IsAdmin = isAdmin })
	return nil
}

func (r *MemoryRepository) DeleteUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, userID)
	for id, row := range r.shared {
		if row.UserID == userID {
			delete(r.shared, id)
		}
	}
	for id, m := range r.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			delete(r.messages, id)
		}
	}
	return nil
}

func (r *MemoryRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	return r.filterUsers(func(models.User) bool { return true }), nil
}

func (r *MemoryRepository) ListUsersByEmailPrefix(ctx context.Context, prefix string) ([]models.User, error) {
	return r.filterUsers(func(u models.User) bool { return strings.HasPrefix(u.Email, prefix) }), nil
}

func (r *MemoryRepository) filterUsers(keep func(models.User) bool) []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := []models.User{}
	for _, u := range r.users {
		if keep(u) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users
}

// Emotion catalog repository methods
func (r *MemoryRepository) ListEmotions(ctx context.Context) ([]models.Emotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	emotions := make([]models.Emotion, 0, len(r.emotions))
	for _, e := range r.emotions {
		emotions = append(emotions, e)
	}
	sort.Slice(emotions, func(i, j int) bool { return emotions[i].ID < emotions[j].ID })
	return emotions, nil
}

func (r *MemoryRepository) GetEmotion(ctx context.Context, id int64) (*models.Emotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.emotions[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *MemoryRepository) GetEmotionByName(ctx context.Context, name string) (*models.Emotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.emotions {
		if e.Name == name {
			return &e, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) CreateEmotion(ctx context.Context, emotion *models.Emotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.emotions {
		if e.Name == emotion.Name {
			return errDuplicate
		}
	}
	emotion.ID = r.id()
	r.emotions[emotion.ID] = *emotion
	return nil
}

func (r *MemoryRepository) DeleteEmotion(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.emotions, id)
	for sid, row := range r.shared {
		if row.EmotionID == id {
			delete(r.shared, sid)
		}
	}
	return nil
}

// Shared emotion repository methods
func (r *MemoryRepository) CreateSharedEmotion(ctx context.Context, se *models.SharedEmotion) error {
	if se.Latitude == nil || se.Longitude == nil {
		return errors.New("shared emotion requires both coordinates")
	}

	latEnc, lonEnc, err := r.cipher.encode(*se.Latitude, *se.Longitude)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[se.UserID]; !ok {
		return errors.New("shared emotion references an unknown user")
	}
	if _, ok := r.emotions[se.EmotionID]; !ok {
		return errors.New("shared emotion references an unknown emotion")
	}

	if se.CreatedAt.IsZero() {
		se.CreatedAt = time.Now().UTC()
	}
	se.IsActive = true
	se.ID = r.id()

	row := sharedEmotionRow{SharedEmotion: *se, LatitudeEnc: latEnc, LongitudeEnc: lonEnc}
	row.Latitude, row.Longitude = nil, nil
	r.shared[se.ID] = row
	return nil
}

// PutRawSharedEmotion stores a row with already-encoded coordinates
func (r *MemoryRepository) PutRawSharedEmotion(se models.SharedEmotion, latEnc, lonEnc string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	se.ID = r.id()
	se.Latitude, se.Longitude = nil, nil
	r.shared[se.ID] = sharedEmotionRow{SharedEmotion: se, LatitudeEnc: latEnc, LongitudeEnc: lonEnc}
	return se.ID
}

// selectShared joins, decodes and orders rows by recency
func (r *MemoryRepository) selectShared(keep func(sharedEmotionRow) bool) []models.SharedEmotion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := []models.SharedEmotion{}
	for _, row := range r.shared {
		if !keep(row) {
			continue
		}
		se := row.SharedEmotion
		se.UserPublicID = r.users[se.UserID].PublicID
		se.EmotionName = r.emotions[se.EmotionID].Name
		r.cipher.apply(&se, row.LatitudeEnc, row.LongitudeEnc)
		records = append(records, se)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
	return records
}

func (r *MemoryRepository) GetSharedEmotion(ctx context.Context, id int64) (*models.SharedEmotion, error) {
	records := r.selectShared(func(row sharedEmotionRow) bool { return row.ID == id })
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (r *MemoryRepository) ListSharedEmotionsForUser(ctx context.Context, userID string) ([]models.SharedEmotion, error) {
	return r.selectShared(func(row sharedEmotionRow) bool { return row.UserID == userID }), nil
}

func (r *MemoryRepository) ActiveEmotionsForUser(ctx context.Context, userID string) ([]models.SharedEmotion, error) {
	return r.selectShared(func(row sharedEmotionRow) bool { return row.IsActive && row.UserID == userID }), nil
}

func (r *MemoryRepository) ActiveEmotions(ctx context.Context) ([]models.SharedEmotion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.selectShared(func(row sharedEmotionRow) bool { return row.IsActive }), nil
}

func (r *MemoryRepository) DeactivateSharedEmotion(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if row, ok := r.shared[id]; ok {
		row.IsActive = false
		r.shared[id] = row
	}
	return nil
}

func (r *MemoryRepository) DeleteSharedEmotions(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.shared {
		if userID == "" || row.UserID == userID {
			delete(r.shared, id)
			n++
		}
	}
	return n, nil
}

// Support message repository methods
func (r *MemoryRepository) ListTemplates(ctx context.Context) ([]models.SupportMessageTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates := make([]models.SupportMessageTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

func (r *MemoryRepository) GetTemplate(ctx context.Context, id int64) (*models.SupportMessageTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *MemoryRepository) GetTemplateByText(ctx context.Context, text string) (*models.SupportMessageTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.templates {
		if t.Text == text {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) CreateTemplate(ctx context.Context, tmpl *models.SupportMessageTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmpl.ID = r.id()
	tmpl.CreatedAt = time.Now().UTC()
	r.templates[tmpl.ID] = *tmpl
	return nil
}

func (r *MemoryRepository) DeleteTemplate(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.templates, id)
	for mid, m := range r.messages {
		if m.TemplateID != nil && *m.TemplateID == id {
			m.TemplateID = nil
			r.messages[mid] = m
		}
	}
	return nil
}

func (r *MemoryRepository) CreateSupportMessage(ctx context.Context, msg *models.SupportMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	receiver, ok := r.users[msg.ReceiverID]
	if !ok {
		return errors.New("support message references an unknown receiver")
	}

	msg.ID = r.id()
	msg.CreatedAt = time.Now().UTC()
	msg.IsRead = false
	r.messages[msg.ID] = *msg

	receiver.UnreadMessages = true
	r.users[receiver.ID] = receiver
	return nil
}

func (r *MemoryRepository) ListMessagesForReceiver(ctx context.Context, receiverID string) ([]models.SupportMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := []models.SupportMessage{}
	for _, m := range r.messages {
		if m.ReceiverID == receiverID {
			m.SenderPublicID = r.users[m.SenderID].PublicID
			messages = append(messages, m)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.After(messages[j].CreatedAt)
		}
		return messages[i].ID > messages[j].ID
	})
	return messages, nil
}

func (r *MemoryRepository) MarkMessagesRead(ctx context.Context, receiverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.messages {
		if m.ReceiverID == receiverID {
			m.IsRead = true
			r.messages[id] = m
		}
	}
	if u, ok := r.users[receiverID]; ok {
		u.UnreadMessages = false
		r.users[receiverID] = u
	}
	return nil
}

// Help resource repository methods
func (r *MemoryRepository) ListHelpResources(ctx context.Context) ([]models.HelpResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resources := make([]models.HelpResource, 0, len(r.resources))
	for _, res := range r.resources {
		resources = append(resources, res)
	}
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Category != resources[j].Category {
			return resources[i].Category < resources[j].Category
		}
		return resources[i].Name < resources[j].Name
	})
	return resources, nil
}

func (r *MemoryRepository) GetHelpResource(ctx context.Context, id int64) (*models.HelpResource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *MemoryRepository) CreateHelpResource(ctx context.Context, res *models.HelpResource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res.ID = r.id()
	r.resources[res.ID] = *res
	return nil
}

func (r *MemoryRepository) UpdateHelpResource(ctx context.Context, res *models.HelpResource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[res.ID]; ok {
		r.resources[res.ID] = *res
	}
	return nil
}

func (r *MemoryRepository) DeleteHelpResource(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.resources, id)
	return nil
}
