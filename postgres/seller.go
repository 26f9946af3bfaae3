package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/sellerportal/payperlead"
)

// SellerStore implements payperlead.SellerStore backed by the sellers table.
type SellerStore struct {
	db *sqlx.DB
}

func NewSellerStore(db *sqlx.DB) *SellerStore {
	return &SellerStore{
		db: db,
	}
}

func (ss SellerStore) Seller(ctx context.Context, sellerID string) (payperlead.Seller, error) {
	query := `
	SELECT
		id,
		email,
		COALESCE(stripe_customer_id, ''),
		COALESCE(default_payment_method, '')
	FROM sellers
	WHERE id=$1`

	row := ss.db.QueryRowContext(ctx, query, sellerID)

	seller := payperlead.Seller{}
	err := row.Scan(
		&seller.ID,
		&seller.Email,
		&seller.CustomerID,
		&seller.DefaultPaymentMethod,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return seller, payperlead.ErrSellerNotFound
		}
		return seller, err
	}

	return seller, nil
}

func (ss SellerStore) SavePaymentProfile(ctx context.Context, sellerID, customerID, paymentMethodID string) error {
	query := `
	UPDATE sellers
	SET stripe_customer_id = $2,
	    default_payment_method = $3
	WHERE id=$1`

	res, err := ss.db.ExecContext(ctx, query, sellerID, customerID, paymentMethodID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return payperlead.ErrSellerNotFound
	}

	return nil
}
