package driven

import (
	"context"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// MovementStore persists the movement dataset served by the analysis service.
// Backed by SQLite.
type MovementStore interface {
	// SaveMovements inserts or replaces movements by ID.
	SaveMovements(ctx context.Context, movements []domain.Movement) error

	// GetMovement retrieves a movement by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetMovement(ctx context.Context, id string) (*domain.Movement, error)

	// ListMovements returns every movement, most recent year first.
	ListMovements(ctx context.Context) ([]domain.Movement, error)

	// TopMovements returns up to limit movements ordered by tweet volume.
	TopMovements(ctx context.Context, limit int) ([]domain.Movement, error)

	// SearchMovements returns up to limit movements whose text fields contain
	// query (case-insensitive), ordered by tweet volume.
	SearchMovements(ctx context.Context, query string, limit int) ([]domain.Movement, error)

	// CountMovements returns the number of stored movements.
	CountMovements(ctx context.Context) (int, error)

	// SaveEmbeddings stores vectors produced by model, keyed by movement ID.
	SaveEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error

	// Embeddings returns every stored vector produced by model.
	Embeddings(ctx context.Context, model string) (map[string][]float32, error)
}
