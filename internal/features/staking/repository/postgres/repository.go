package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"qai-backend/internal/features/staking/models"
	"qai-backend/internal/features/staking/repository"
	walletpg "qai-backend/internal/features/wallet/repository/postgres"
	"qai-backend/internal/platform/postgres"
)

const packageColumns = `id, name, price, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.PackageRepository {
	return &postgresRepository{db: db}
}

func scanPackages(rows *sql.Rows) ([]models.Package, error) {
	defer rows.Close()
	var pkgs []models.Package
	for rows.Next() {
		var p models.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, rows.Err()
}

func (r *postgresRepository) ListPackages(ctx context.Context) ([]models.Package, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY price ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	return scanPackages(rows)
}

func (r *postgresRepository) FindByPrice(ctx context.Context, price decimal.Decimal) (*models.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE price = $1 ORDER BY created_at ASC LIMIT 1`
	var p models.Package
	err := r.db.QueryRowContext(ctx, query, price).Scan(&p.ID, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrPackageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find package: %w", err)
	}
	return &p, nil
}

func (r *postgresRepository) SearchPackages(ctx context.Context, q models.PackageQuery) ([]models.Package, int, error) {
	where := "TRUE"
	args := []interface{}{}
	if q.Q != "" {
		args = append(args, "%"+likeEscaper.Replace(q.Q)+"%")
		where = "name ILIKE $1"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count packages: %w", err)
	}

	args = append(args, q.Size, (q.Page-1)*q.Size)
	query := fmt.Sprintf(`SELECT %s FROM packages WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		packageColumns, where, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search packages: %w", err)
	}
	pkgs, err := scanPackages(rows)
	if err != nil {
		return nil, 0, err
	}
	return pkgs, total, nil
}

func (r *postgresRepository) CreatePackage(ctx context.Context, pkg *models.Package) error {
	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	}
	query := `
		INSERT INTO packages (id, name, price)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, pkg.ID, pkg.Name, pkg.Price).Scan(&pkg.CreatedAt, &pkg.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeletePackage(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrPackageNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	if n == 0 {
		return repository.ErrPackageNotFound
	}
	return nil
}

func (r *postgresRepository) History(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, user_id, COALESCE(package_id::text, ''), package_name, quantity, unit_price, total_price, created_at
		FROM user_package_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get staking history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.PackageID, &e.PackageName, &e.Quantity,
			&e.UnitPrice, &e.TotalPrice, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staking history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresRepository) WithinTx(ctx context.Context, fn func(tx repository.PurchaseTx) error) error {
	return postgres.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&purchaseTx{Ledger: walletpg.NewLedger(tx), db: tx})
	})
}

type purchaseTx struct {
	*walletpg.Ledger
	db postgres.DBTX
}

func (t *purchaseTx) AddHolding(ctx context.Context, userID, packageID string) error {
	query := `
		INSERT INTO user_packages (user_id, package_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, package_id) DO UPDATE SET quantity = user_packages.quantity + 1
	`
	if _, err := t.db.ExecContext(ctx, query, userID, packageID); err != nil {
		return fmt.Errorf("failed to add holding: %w", err)
	}
	return nil
}

func (t *purchaseTx) InsertHistory(ctx context.Context, e *models.HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO user_package_history (id, user_id, package_id, package_name, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := t.db.QueryRowContext(ctx, query,
		e.ID, e.UserID, e.PackageID, e.PackageName, e.Quantity, e.UnitPrice, e.TotalPrice,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert staking history: %w", err)
	}
	return nil
}
