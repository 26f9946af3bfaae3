package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sellerportal/payperlead"
)

// OrderStore implements payperlead.OrderStore backed by the orders table.
type OrderStore struct {
	db *sqlx.DB
}

func NewOrderStore(db *sqlx.DB) *OrderStore {
	return &OrderStore{
		db: db,
	}
}

func (os OrderStore) Visibility(ctx context.Context, orderID, sellerID string) (payperlead.OrderVisibility, error) {
	query := `
	SELECT
		is_hidden,
		created_at,
		seq
	FROM orders
	WHERE id=$1 AND seller_id=$2`

	row := os.db.QueryRowContext(ctx, query, orderID, sellerID)

	vis := payperlead.OrderVisibility{}
	err := row.Scan(
		&vis.Hidden,
		&vis.CreatedAt,
		&vis.Seq,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return vis, payperlead.ErrOrderNotFound
		}
		return vis, err
	}

	return vis, nil
}

// CountPriorOrders counts orders created strictly before (createdAt, seq).
// The seq tie-break keeps eligibility deterministic for orders created in
// the same instant.
func (os OrderStore) CountPriorOrders(ctx context.Context, sellerID string, createdAt time.Time, seq int64) (int, error) {
	query := `
	SELECT COUNT(id)
	FROM orders
	WHERE seller_id=$1
	  AND (created_at < $2 OR (created_at = $2 AND seq < $3))`

	var count int
	if err := os.db.QueryRowContext(ctx, query, sellerID, createdAt, seq).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// SetVisible flips is_hidden to false only while it is still true, so the
// unlock transition is monotonic under concurrent callers. Returns false
// when the order was already visible.
func (os OrderStore) SetVisible(ctx context.Context, orderID, sellerID string) (bool, error) {
	query := `
	UPDATE orders
	SET is_hidden = FALSE
	WHERE id=$1 AND seller_id=$2 AND is_hidden = TRUE`

	res, err := os.db.ExecContext(ctx, query, orderID, sellerID)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}
