package businesses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
)

// ErrDuplicateOwner is returned by Create when the owner already has a
// business. The unique index on owner_id enforces it.
var ErrDuplicateOwner = errors.New("owner already has a business")

// Duplicate-key codes reported by each driver.
const (
	pgUniqueViolation = "23505"
	mysqlDuplicateKey = 1062
)

// Repository defines the data access contract for business records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	FindByOwner(ctx context.Context, ownerID string) (*Business, error)
	Create(ctx context.Context, b *Business) error
	List(ctx context.Context, offset, limit int) ([]Business, int, error)
}

// repository implements Repository with hand-written SQL. Queries are
// written with ? placeholders and rebound for Postgres.
type repository struct {
	db     *sql.DB
	driver string
}

// NewRepository creates a repository backed by the given DB pool. driver is
// the database/sql driver name ("pgx" or "mysql").
func NewRepository(db *sql.DB, driver string) Repository {
	return &repository{db: db, driver: driver}
}

// FindByOwner returns the owner's business.
// Returns apperror.NotFound if the owner has none.
func (r *repository) FindByOwner(ctx context.Context, ownerID string) (*Business, error) {
	query := `SELECT id, owner_id, name, phone, website, industry, description, created_at
	          FROM businesses WHERE owner_id = ? ORDER BY created_at LIMIT 1`

	b := &Business{}
	err := r.db.QueryRowContext(ctx, r.rebind(query), ownerID).Scan(
		&b.ID,
		&b.OwnerID,
		&b.Name,
		&b.Phone,
		&b.Website,
		&b.Industry,
		&b.Description,
		&b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("business not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying business by owner: %w", err)
	}

	return b, nil
}

// Create inserts a new business row.
func (r *repository) Create(ctx context.Context, b *Business) error {
	query := `INSERT INTO businesses (id, owner_id, name, phone, website, industry, description, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		b.ID,
		b.OwnerID,
		b.Name,
		b.Phone,
		b.Website,
		b.Industry,
		b.Description,
		b.CreatedAt,
	)
	if isDuplicateKey(err) {
		return ErrDuplicateOwner
	}
	if err != nil {
		return fmt.Errorf("inserting business: %w", err)
	}

	return nil
}

// List returns a page of businesses, newest first, and the total count.
func (r *repository) List(ctx context.Context, offset, limit int) ([]Business, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting businesses: %w", err)
	}

	query := `SELECT id, owner_id, name, phone, website, industry, description, created_at
	          FROM businesses ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing businesses: %w", err)
	}
	defer rows.Close()

	var out []Business
	for rows.Next() {
		var b Business
		if err := rows.Scan(
			&b.ID, &b.OwnerID, &b.Name, &b.Phone,
			&b.Website, &b.Industry, &b.Description, &b.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning business row: %w", err)
		}
		out = append(out, b)
	}

	return out, total, rows.Err()
}

// isDuplicateKey reports whether err is a unique-constraint violation from
// either driver.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateKey
	}
	return false
}

// rebind rewrites ? placeholders to $n for Postgres drivers.
func (r *repository) rebind(query string) string {
	if r.driver == "mysql" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}
