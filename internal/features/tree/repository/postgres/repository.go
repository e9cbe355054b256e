package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qai-backend/internal/features/tree/models"
	"qai-backend/internal/features/tree/repository"
	"qai-backend/internal/platform/postgres"
)

// Repository implements repository.EdgeStore and repository.TreeReader. Bind it
// to a *sql.Tx for placement and to the pool for reads.
type Repository struct {
	db postgres.DBTX
}

func NewRepository(db postgres.DBTX) *Repository {
	return &Repository{db: db}
}

var (
	_ repository.EdgeStore  = (*Repository)(nil)
	_ repository.TreeReader = (*Repository)(nil)
)

var knownTables = map[string]bool{
	"referral_edges":           true,
	"sponsor_edges":            true,
	"referral_group_summaries": true,
}

// table guards the identifiers interpolated into queries.
func table(name string) (string, error) {
	if !knownTables[name] {
		return "", fmt.Errorf("unknown tree table %q", name)
	}
	return name, nil
}

func (r *Repository) CountChildren(ctx context.Context, kind models.Kind, parentID string) (int, error) {
	t, err := table(kind.EdgeTable)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE parent_id = $1`, t)

	var n int
	if err := r.db.QueryRowContext(ctx, query, parentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s children: %w", kind.Name, err)
	}
	return n, nil
}

func (r *Repository) GroupCounts(ctx context.Context, kind models.Kind, parentID string) (map[int]int, error) {
	t, err := table(kind.EdgeTable)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT group_no, COUNT(*)
		FROM %s
		WHERE parent_id = $1
		GROUP BY group_no
	`, t)

	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s groups: %w", kind.Name, err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var groupNo, n int
		if err := rows.Scan(&groupNo, &n); err != nil {
			return nil, err
		}
		counts[groupNo] = n
	}
	return counts, rows.Err()
}

func (r *Repository) MaxPosition(ctx context.Context, kind models.Kind, parentID string, groupNo int) (int, error) {
	t, err := table(kind.EdgeTable)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COALESCE(MAX(position), 0) FROM %s WHERE parent_id = $1 AND group_no = $2`, t)

	var pos int
	if err := r.db.QueryRowContext(ctx, query, parentID, groupNo).Scan(&pos); err != nil {
		return 0, fmt.Errorf("failed to read %s max position: %w", kind.Name, err)
	}
	return pos, nil
}

func (r *Repository) InboundDepth(ctx context.Context, kind models.Kind, userID string) (int, bool, error) {
	t, err := table(kind.EdgeTable)
	if err != nil {
		return 0, false, err
	}
	query := fmt.Sprintf(`SELECT depth FROM %s WHERE child_id = $1`, t)

	var depth int
	err = r.db.QueryRowContext(ctx, query, userID).Scan(&depth)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s depth: %w", kind.Name, err)
	}
	return depth, true, nil
}

func (r *Repository) InsertEdge(ctx context.Context, kind models.Kind, edge *models.Edge) error {
	t, err := table(kind.EdgeTable)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (parent_id, child_id, group_no, position, depth)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, t)

	err = r.db.QueryRowContext(ctx, query,
		edge.ParentID, edge.ChildID, edge.GroupNo, edge.Position, edge.Depth,
	).Scan(&edge.CreatedAt)
	if err != nil {
		if _, dup := postgres.UniqueViolation(err); dup {
			return fmt.Errorf("failed to insert %s edge: %w", kind.Name, repository.ErrSlotTaken)
		}
		return fmt.Errorf("failed to insert %s edge: %w", kind.Name, err)
	}
	return nil
}

func (r *Repository) UpsertGroupSummary(ctx context.Context, kind models.Kind, parentID string, groupNo int) error {
	if !kind.HasSummary() {
		return nil
	}
	summary, err := table(kind.SummaryTable)
	if err != nil {
		return err
	}
	edges, err := table(kind.EdgeTable)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (parent_id, group_no, child_count, updated_at)
		SELECT $1, $2, COUNT(*), NOW()
		FROM %s
		WHERE parent_id = $1 AND group_no = $2
		ON CONFLICT (parent_id, group_no) DO UPDATE SET
			child_count = EXCLUDED.child_count,
			updated_at = EXCLUDED.updated_at
	`, summary, edges)

	if _, err := r.db.ExecContext(ctx, query, parentID, groupNo); err != nil {
		return fmt.Errorf("failed to upsert %s group summary: %w", kind.Name, err)
	}
	return nil
}

func (r *Repository) Member(ctx context.Context, userID string) (*models.Member, error) {
	const query = `
		SELECT id, username, level, referral_code, created_at
		FROM users
		WHERE id = $1
	`

	var m models.Member
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&m.ID, &m.Username, &m.Level, &m.ReferralCode, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tree member: %w", err)
	}
	return &m, nil
}

func (r *Repository) Descendants(ctx context.Context, kind models.Kind, rootID string, maxDepth int) ([]models.Member, error) {
	t, err := table(kind.EdgeTable)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		WITH RECURSIVE sub AS (
			SELECT e.child_id, e.parent_id, 1 AS lvl
			FROM %[1]s e
			WHERE e.parent_id = $1
			UNION ALL
			SELECT e.child_id, e.parent_id, s.lvl + 1
			FROM %[1]s e
			JOIN sub s ON e.parent_id = s.child_id
			WHERE s.lvl < $2
		)
		SELECT u.id, s.parent_id, u.username, u.level, u.referral_code, u.created_at, s.lvl
		FROM sub s
		JOIN users u ON u.id = s.child_id
		ORDER BY s.lvl, u.created_at, u.id
	`, t)

	rows, err := r.db.QueryContext(ctx, query, rootID, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s tree: %w", kind.Name, err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.ParentID, &m.Username, &m.Level, &m.ReferralCode, &m.JoinedAt, &m.Depth); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repository) EdgeOf(ctx context.Context, kind models.Kind, userID string) (*models.Edge, error) {
	t, err := table(kind.EdgeTable)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT parent_id, child_id, group_no, position, depth, created_at
		FROM %s
		WHERE child_id = $1
	`, t)

	var e models.Edge
	err = r.db.QueryRowContext(ctx, query, userID).Scan(
		&e.ParentID, &e.ChildID, &e.GroupNo, &e.Position, &e.Depth, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s edge: %w", kind.Name, err)
	}
	return &e, nil
}
