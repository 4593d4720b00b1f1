package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateSplit inserts a new split. A split already recorded for the
	// payment returns ErrSplitExists; the unique constraint is the arbiter.
	CreateSplit(ctx context.Context, split *Split) error

	GetByID(ctx context.Context, id uuid.UUID) (*Split, error)
	GetByPayment(ctx context.Context, paymentID uuid.UUID) (*Split, error)
	ListByStore(ctx context.Context, storeID int64) ([]*Split, error)

	// MarkReleased moves a pending split to completed and stamps it.
	// Returns ErrAlreadyReleased when the split is not pending anymore.
	MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) error
}
