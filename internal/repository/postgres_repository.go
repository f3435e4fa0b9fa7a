package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/utils"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db     *sqlx.DB
	cipher coordinateCipher
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB, codec *encryption.CoordinateCodec, logger *utils.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		cipher: coordinateCipher{codec: codec, logger: logger},
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// getOne runs a single-row query, mapping sql.ErrNoRows to found=false
func getOne(ctx context.Context, db *sqlx.DB, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := db.GetContext(ctx, dest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, public_id, email, name, last_name, password, avatar_id, is_admin,
			unread_messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.AvatarID == 0 {
		user.AvatarID = models.DefaultAvatarID
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.PublicID, user.Email, user.Name, user.LastName, user.Password, user.AvatarID,
		user.IsAdmin, user.UnreadMessages, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	found, err := getOne(ctx, r.db, &user, `SELECT * FROM users WHERE lower(email) = lower($1)`, email)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := getOne(ctx, r.db, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) PublicIDExists(ctx context.Context, publicID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE public_id = $1)`, publicID)
	return exists, err
}

func (r *PostgresRepository) SetUserAdmin(ctx context.Context, userID string, isAdmin bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = $1, updated_at = $2 WHERE id = $3`,
		isAdmin, time.Now().UTC(), userID)
	return err
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, userID string) error {
	// Shared emotions and messages go with the user via ON DELETE CASCADE
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	return err
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at, email`)
	return users, err
}

func (r *PostgresRepository) ListUsersByEmailPrefix(ctx context.Context, prefix string) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users WHERE email LIKE $1 || '%' ORDER BY email`, prefix)
	return users, err
}

// Emotion catalog repository methods
func (r *PostgresRepository) ListEmotions(ctx context.Context) ([]models.Emotion, error) {
	emotions := []models.Emotion{}
	err := r.db.SelectContext(ctx, &emotions, `SELECT id, name, image FROM emotions ORDER BY id`)
	return emotions, err
}

func (r *PostgresRepository) GetEmotion(ctx context.Context, id int64) (*models.Emotion, error) {
	var emotion models.Emotion
	found, err := getOne(ctx, r.db, &emotion, `SELECT id, name, image FROM emotions WHERE id = $1`, id)
	if err != nil || !found {
		return nil, err
	}
	return &emotion, nil
}

func (r *PostgresRepository) GetEmotionByName(ctx context.Context, name string) (*models.Emotion, error) {
	var emotion models.Emotion
	found, err := getOne(ctx, r.db, &emotion, `SELECT id, name, image FROM emotions WHERE name = $1`, name)
	if err != nil || !found {
		return nil, err
	}
	return &emotion, nil
}

func (r *PostgresRepository) CreateEmotion(ctx context.Context, emotion *models.Emotion) error {
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO emotions (name, image) VALUES ($1, $2) RETURNING id`,
		emotion.Name, emotion.Image).Scan(&emotion.ID)
}

func (r *PostgresRepository) DeleteEmotion(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM emotions WHERE id = $1`, id)
	return err
}

// Shared emotion repository methods

// sharedEmotionRow is a shared_emotions row joined with its owner and emotion name
type sharedEmotionRow struct {
	models.SharedEmotion
	LatitudeEnc  string `db:"latitude_enc"`
	LongitudeEnc string `db:"longitude_enc"`
}

const sharedEmotionSelect = `
	SELECT se.id, se.user_id, u.public_id AS user_public_id, se.emotion_id, e.name AS emotion_name,
		se.latitude_enc, se.longitude_enc, se.created_at, se.is_active
	FROM shared_emotions se
	JOIN users u ON u.id = se.user_id
	JOIN emotions e ON e.id = se.emotion_id
`

const recencyOrder = ` ORDER BY se.created_at DESC, se.id DESC`

func (r *PostgresRepository) selectSharedEmotions(ctx context.Context, query string, args ...interface{}) ([]models.SharedEmotion, error) {
	var rows []sharedEmotionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	records := make([]models.SharedEmotion, 0, len(rows))
	for _, row := range rows {
		se := row.SharedEmotion
		r.cipher.apply(&se, row.LatitudeEnc, row.LongitudeEnc)
		records = append(records, se)
	}
	return records, nil
}

func (r *PostgresRepository) CreateSharedEmotion(ctx context.Context, se *models.SharedEmotion) error {
	if se.Latitude == nil || se.Longitude == nil {
		return errors.New("shared emotion requires both coordinates")
	}

	latEnc, lonEnc, err := r.cipher.encode(*se.Latitude, *se.Longitude)
	if err != nil {
		return err
	}

	if se.CreatedAt.IsZero() {
		se.CreatedAt = time.Now().UTC()
	}
	se.IsActive = true

	return r.db.QueryRowxContext(ctx, `
		INSERT INTO shared_emotions (user_id, emotion_id, latitude_enc, longitude_enc, created_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, se.UserID, se.EmotionID, latEnc, lonEnc, se.CreatedAt, se.IsActive).Scan(&se.ID)
}

func (r *PostgresRepository) GetSharedEmotion(ctx context.Context, id int64) (*models.SharedEmotion, error) {
	records, err := r.selectSharedEmotions(ctx, sharedEmotionSelect+` WHERE se.id = $1`, id)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

func (r *PostgresRepository) ListSharedEmotionsForUser(ctx context.Context, userID string) ([]models.SharedEmotion, error) {
	return r.selectSharedEmotions(ctx, sharedEmotionSelect+` WHERE se.user_id = $1`+recencyOrder, userID)
}

func (r *PostgresRepository) ActiveEmotionsForUser(ctx context.Context, userID string) ([]models.SharedEmotion, error) {
	return r.selectSharedEmotions(ctx,
		sharedEmotionSelect+` WHERE se.user_id = $1 AND se.is_active`+recencyOrder, userID)
}

func (r *PostgresRepository) ActiveEmotions(ctx context.Context) ([]models.SharedEmotion, error) {
	return r.selectSharedEmotions(ctx, sharedEmotionSelect+` WHERE se.is_active`+recencyOrder)
}

func (r *PostgresRepository) DeactivateSharedEmotion(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE shared_emotions SET is_active = FALSE WHERE id = $1`, id)
	return err
}

// DeleteSharedEmotions removes a user's shared emotions, or every shared emotion when userID is empty
func (r *PostgresRepository) DeleteSharedEmotions(ctx context.Context, userID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if userID == "" {
		res, err = r.db.ExecContext(ctx, `DELETE FROM shared_emotions`)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM shared_emotions WHERE user_id = $1`, userID)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Support message repository methods
func (r *PostgresRepository) ListTemplates(ctx context.Context) ([]models.SupportMessageTemplate, error) {
	templates := []models.SupportMessageTemplate{}
	err := r.db.SelectContext(ctx, &templates, `SELECT * FROM support_message_templates ORDER BY id`)
	return templates, err
}

func (r *PostgresRepository) GetTemplate(ctx context.Context, id int64) (*models.SupportMessageTemplate, error) {
	var tmpl models.SupportMessageTemplate
	found, err := getOne(ctx, r.db, &tmpl, `SELECT * FROM support_message_templates WHERE id = $1`, id)
	if err != nil || !found {
		return nil, err
	}
	return &tmpl, nil
}

func (r *PostgresRepository) GetTemplateByText(ctx context.Context, text string) (*models.SupportMessageTemplate, error) {
	var tmpl models.SupportMessageTemplate
	found, err := getOne(ctx, r.db, &tmpl, `SELECT * FROM support_message_templates WHERE text = $1`, text)
	if err != nil || !found {
		return nil, err
	}
	return &tmpl, nil
}

func (r *PostgresRepository) CreateTemplate(ctx context.Context, tmpl *models.SupportMessageTemplate) error {
	tmpl.CreatedAt = time.Now().UTC()
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO support_message_templates (text, created_at) VALUES ($1, $2) RETURNING id`,
		tmpl.Text, tmpl.CreatedAt).Scan(&tmpl.ID)
}

func (r *PostgresRepository) DeleteTemplate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM support_message_templates WHERE id = $1`, id)
	return err
}

// CreateSupportMessage stores the message and flags the receiver as having unread messages
func (r *PostgresRepository) CreateSupportMessage(ctx context.Context, msg *models.SupportMessage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	msg.CreatedAt = time.Now().UTC()
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO support_messages (sender_id, receiver_id, shared_emotion_id, template_id, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING id
	`, msg.SenderID, msg.ReceiverID, msg.SharedEmotionID, msg.TemplateID, msg.Message, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET unread_messages = TRUE WHERE id = $1`, msg.ReceiverID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) ListMessagesForReceiver(ctx context.Context, receiverID string) ([]models.SupportMessage, error) {
	messages := []models.SupportMessage{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT m.id, m.sender_id, m.receiver_id, u.public_id AS sender_public_id, m.shared_emotion_id,
			m.template_id, m.message, m.is_read, m.created_at
		FROM support_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.receiver_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`, receiverID)
	return messages, err
}

// MarkMessagesRead marks every message of the receiver read and clears the unread flag
func (r *PostgresRepository) MarkMessagesRead(ctx context.Context, receiverID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `UPDATE support_messages SET is_read = TRUE WHERE receiver_id = $1`, receiverID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET unread_messages = FALSE WHERE id = $1`, receiverID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Help resource repository methods
func (r *PostgresRepository) ListHelpResources(ctx context.Context) ([]models.HelpResource, error) {
	resources := []models.HelpResource{}
	err := r.db.SelectContext(ctx, &resources, `SELECT * FROM help_resources ORDER BY category, name`)
	return resources, err
}

func (r *PostgresRepository) GetHelpResource(ctx context.Context, id int64) (*models.HelpResource, error) {
	var res models.HelpResource
	found, err := getOne(ctx, r.db, &res, `SELECT * FROM help_resources WHERE id = $1`, id)
	if err != nil || !found {
		return nil, err
	}
	return &res, nil
}

func (r *PostgresRepository) CreateHelpResource(ctx context.Context, res *models.HelpResource) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO help_resources (name, description, url, location, category, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, res.Name, res.Description, res.URL, res.Location, res.Category, res.Phone, res.Email).Scan(&res.ID)
}

func (r *PostgresRepository) UpdateHelpResource(ctx context.Context, res *models.HelpResource) error {
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE help_resources
		SET name = :name, description = :description, url = :url, location = :location,
			category = :category, phone = :phone, email = :email
		WHERE id = :id
	`, res)
	return err
}

func (r *PostgresRepository) DeleteHelpResource(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM help_resources WHERE id = $1`, id)
	return err
}
