package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tendant/simple-cards/pkg/domain"
)

const cardSelect = `
	SELECT c.id, c.biz_number, c.user_id, c.title, c.subtitle, c.description,
	       c.phone, c.email, c.web, c.image, c.address, c.is_blocked,
	       c.created_at, c.updated_at,
	       COALESCE(array_agg(l.user_id::text ORDER BY l.created_at) FILTER (WHERE l.user_id IS NOT NULL), '{}') AS likes
	FROM cards c
	LEFT JOIN card_likes l ON l.card_id = c.id
`

// CardsRepository is the Postgres listing store. Likes live in card_likes
// whose primary key keeps each user at most once per card.
type CardsRepository struct {
	db Querier
}

func NewCardsRepository(db Querier) *CardsRepository {
	return &CardsRepository{db: db}
}

func scanCard(row interface{ Scan(...any) error }) (*domain.Card, error) {
	var (
		card        domain.Card
		image, addr []byte
		likes       pq.StringArray
	)
	err := row.Scan(
		&card.ID, &card.BizNumber, &card.UserID, &card.Title, &card.Subtitle, &card.Description,
		&card.Phone, &card.Email, &card.Web, &image, &addr, &card.IsBlocked,
		&card.CreatedAt, &card.UpdatedAt, &likes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCardNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(image, &card.Image); err != nil {
		return nil, fmt.Errorf("decode card image: %w", err)
	}
	if err := json.Unmarshal(addr, &card.Address); err != nil {
		return nil, fmt.Errorf("decode card address: %w", err)
	}
	card.Likes = make([]uuid.UUID, 0, len(likes))
	for _, s := range likes {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("decode card like: %w", err)
		}
		card.Likes = append(card.Likes, id)
	}
	return &card, nil
}

func (r *CardsRepository) query(ctx context.Context, where string, args ...any) ([]*domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, cardSelect+where+` GROUP BY c.id ORDER BY c.created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := []*domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *CardsRepository) BizNumberExists(ctx context.Context, n int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM cards WHERE biz_number = $1)`, n).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check biz number: %w", err)
	}
	return exists, nil
}

// Create inserts a card. A taken business number yields domain.ErrBizNumberTaken.
func (r *CardsRepository) Create(ctx context.Context, card *domain.Card) error {
	image, addr, err := marshalCardJSON(card)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO cards (id, biz_number, user_id, title, subtitle, description,
		                   phone, email, web, image, address, is_blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.ExecContext(ctx, query,
		card.ID, card.BizNumber, card.UserID, card.Title, card.Subtitle, card.Description,
		card.Phone, card.Email, card.Web, image, addr, card.IsBlocked, card.CreatedAt, card.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err, constraintCardsBizNumber):
		return domain.ErrBizNumberTaken
	case isForeignKeyViolation(err):
		return domain.ErrUserNotFound
	case err != nil:
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (r *CardsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx, cardSelect+`WHERE c.id = $1 GROUP BY c.id`, id)
	return scanCard(row)
}

func (r *CardsRepository) List(ctx context.Context, includeBlocked bool) ([]*domain.Card, error) {
	if includeBlocked {
		return r.query(ctx, "")
	}
	return r.query(ctx, `WHERE NOT c.is_blocked`)
}

func (r *CardsRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Card, error) {
	return r.query(ctx, `WHERE c.user_id = $1`, owner)
}

// Update writes the editable content. Business number, owner, likes and
// block flag are left untouched.
func (r *CardsRepository) Update(ctx context.Context, card *domain.Card) error {
	image, addr, err := marshalCardJSON(card)
	if err != nil {
		return err
	}
	query := `
		UPDATE cards
		SET title = $2, subtitle = $3, description = $4, phone = $5, email = $6,
		    web = $7, image = $8, address = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		card.ID, card.Title, card.Subtitle, card.Description, card.Phone, card.Email,
		card.Web, image, addr, card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return rowsAffected(result, domain.ErrCardNotFound)
}

func (r *CardsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return rowsAffected(result, domain.ErrCardNotFound)
}

// ToggleLike removes the like if present and inserts it otherwise, in one
// statement. The insert reports one row only when the like was added.
func (r *CardsRepository) ToggleLike(ctx context.Context, cardID, userID uuid.UUID) (bool, error) {
	query := `
		WITH removed AS (
			DELETE FROM card_likes WHERE card_id = $1 AND user_id = $2
			RETURNING 1
		)
		INSERT INTO card_likes (card_id, user_id, created_at)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (SELECT 1 FROM removed)
		ON CONFLICT DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, cardID, userID, time.Now().UTC())
	if isForeignKeyViolation(err) {
		return false, domain.ErrCardNotFound
	}
	if err != nil {
		return false, fmt.Errorf("toggle like: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *CardsRepository) SetBizNumber(ctx context.Context, id uuid.UUID, n int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cards SET biz_number = $2, updated_at = $3 WHERE id = $1`, id, n, time.Now().UTC())
	if isUniqueViolation(err, constraintCardsBizNumber) {
		return domain.ErrBizNumberTaken
	}
	if err != nil {
		return fmt.Errorf("update biz number: %w", err)
	}
	return rowsAffected(result, domain.ErrCardNotFound)
}

func (r *CardsRepository) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cards SET is_blocked = $2, updated_at = $3 WHERE id = $1`, id, blocked, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return rowsAffected(result, domain.ErrCardNotFound)
}

func marshalCardJSON(card *domain.Card) (image, addr []byte, err error) {
	if image, err = json.Marshal(card.Image); err != nil {
		return nil, nil, fmt.Errorf("encode card image: %w", err)
	}
	if addr, err = json.Marshal(card.Address); err != nil {
		return nil, nil, fmt.Errorf("encode card address: %w", err)
	}
	return image, addr, nil
}
