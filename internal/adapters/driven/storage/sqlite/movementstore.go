package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
)

// movementStore implements driven.MovementStore.
type movementStore struct {
	db *sql.DB
}

var _ driven.MovementStore = (*movementStore)(nil)

// movementColumns lists the selected columns in scan order.
const movementColumns = `id, name, hashtag, year, region, iso, scale, type, regime,
	description, outcome, tags, tweets_count, tweets, participants, reoccurrence,
	length_days, twitter_penetration, offline_presence, wikipedia, star_rating`

// searchPredicate matches a lowercased needle against the searchable text fields.
const searchPredicate = `instr(lower(name), ?1) > 0 OR instr(lower(hashtag), ?1) > 0
	OR instr(lower(description), ?1) > 0 OR instr(lower(region), ?1) > 0
	OR instr(lower(year), ?1) > 0 OR instr(lower(tags), ?1) > 0`

// SaveMovements inserts or replaces movements by ID. Existing embeddings are
// kept; an upsert does not delete the row.
func (s *movementStore) SaveMovements(ctx context.Context, movements []domain.Movement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movements (`+movementColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, hashtag = excluded.hashtag, year = excluded.year,
			region = excluded.region, iso = excluded.iso, scale = excluded.scale,
			type = excluded.type, regime = excluded.regime, description = excluded.description,
			outcome = excluded.outcome, tags = excluded.tags, tweets_count = excluded.tweets_count,
			tweets = excluded.tweets, participants = excluded.participants,
			reoccurrence = excluded.reoccurrence, length_days = excluded.length_days,
			twitter_penetration = excluded.twitter_penetration,
			offline_presence = excluded.offline_presence, wikipedia = excluded.wikipedia,
			star_rating = excluded.star_rating, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range movements {
		m := &movements[i]
		tags, err := json.Marshal(nonNilTags(m.Tags))
		if err != nil {
			return fmt.Errorf("marshalling tags of %s: %w", m.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			m.ID, m.Name, m.Hashtag, m.Year, m.Region, m.ISO, m.Scale, m.Type, m.Regime,
			m.Description, m.Outcome, string(tags), m.TweetsCount, m.Tweets, m.Participants,
			m.Reoccurrence, m.LengthDays, m.TwitterPenetration, m.OfflinePresence,
			m.Wikipedia, m.StarRating,
		)
		if err != nil {
			return fmt.Errorf("saving movement %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// GetMovement retrieves a movement by ID.
func (s *movementStore) GetMovement(ctx context.Context, id string) (*domain.Movement, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = ?`, id)
	m, err := scanMovement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying movement: %w", err)
	}
	return m, nil
}

// ListMovements returns every movement, most recent year first.
func (s *movementStore) ListMovements(ctx context.Context) ([]domain.Movement, error) {
	return s.query(ctx, `SELECT `+movementColumns+` FROM movements ORDER BY year DESC, id`)
}

// TopMovements returns up to limit movements ordered by tweet volume.
func (s *movementStore) TopMovements(ctx context.Context, limit int) ([]domain.Movement, error) {
	return s.query(ctx, `SELECT `+movementColumns+` FROM movements
		ORDER BY tweets DESC, id LIMIT ?`, sqlLimit(limit))
}

// SearchMovements returns up to limit movements containing query in a text field.
func (s *movementStore) SearchMovements(ctx context.Context, query string, limit int) ([]domain.Movement, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	return s.query(ctx, `SELECT `+movementColumns+` FROM movements
		WHERE `+searchPredicate+`
		ORDER BY tweets DESC, id LIMIT ?2`, needle, sqlLimit(limit))
}

// CountMovements returns the number of stored movements.
func (s *movementStore) CountMovements(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movements`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting movements: %w", err)
	}
	return count, nil
}

// SaveEmbeddings stores vectors produced by model.
func (s *movementStore) SaveEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movement_embeddings (model, movement_id, dimensions, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(model, movement_id) DO UPDATE SET
			dimensions = excluded.dimensions, vector = excluded.vector
	`)
	if err != nil {
		return fmt.Errorf("prepare embedding upsert: %w", err)
	}
	defer stmt.Close()

	for id, vec := range vectors {
		if _, err := stmt.ExecContext(ctx, model, id, len(vec), float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("saving embedding for %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Embeddings returns every stored vector produced by model.
func (s *movementStore) Embeddings(ctx context.Context, model string) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT movement_id, vector FROM movement_embeddings WHERE model = ?`, model)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		out[id] = bytesToFloat32Slice(blob)
	}
	return out, rows.Err()
}

func (s *movementStore) query(ctx context.Context, query string, args ...any) ([]domain.Movement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying movements: %w", err)
	}
	defer rows.Close()

	movements := []domain.Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovement(row rowScanner) (*domain.Movement, error) {
	var m domain.Movement
	var tags string
	err := row.Scan(
		&m.ID, &m.Name, &m.Hashtag, &m.Year, &m.Region, &m.ISO, &m.Scale, &m.Type, &m.Regime,
		&m.Description, &m.Outcome, &tags, &m.TweetsCount, &m.Tweets, &m.Participants,
		&m.Reoccurrence, &m.LengthDays, &m.TwitterPenetration, &m.OfflinePresence,
		&m.Wikipedia, &m.StarRating,
	)
	if err != nil {
		return nil, err
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
			return nil, fmt.Errorf("unmarshalling tags of %s: %w", m.ID, err)
		}
	}
	if len(m.Tags) == 0 {
		m.Tags = nil
	}
	return &m, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
