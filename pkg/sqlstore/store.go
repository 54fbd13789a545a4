// Package sqlstore is the relational adapter: parameterized CRUD for the
// users table through a bounded database/sql connection pool. The default
// dialect is MySQL; postgres is supported for local setups that prefer it.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/config"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/metrics"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/models"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/storage"
)

// Store wraps the shared *sql.DB. Every operation is a single statement; no
// transactions.
type Store struct {
	db      *sql.DB
	driver  string
	logger  zerolog.Logger
	metrics metrics.Provider
}

// Open connects to the relational store and bounds the pool. Requests beyond
// MaxOpenConns queue on the pool rather than fail.
func Open(cfg config.SQLConfig, logger zerolog.Logger, provider metrics.Provider) (*Store, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s pool: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{
		db:      db,
		driver:  cfg.Driver,
		logger:  logger.With().Str("component", "sqlstore").Logger(),
		metrics: provider,
	}, nil
}

func buildDSN(cfg config.SQLConfig) (string, error) {
	switch cfg.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.DBName = cfg.Database
		mc.ParseTime = true
		if cfg.TLS {
			mc.TLSConfig = "true"
		}
		return mc.FormatDSN(), nil
	case "postgres":
		ssl := "disable"
		if cfg.TLS {
			ssl = "require"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, ssl), nil
	default:
		return "", fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
}

// EnsureSchema creates the users table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		phone VARCHAR(64) NOT NULL DEFAULT '',
		address VARCHAR(512) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if s.driver == "postgres" {
		ddl = `CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		phone VARCHAR(64) NOT NULL DEFAULT '',
		address VARCHAR(512) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlstore: creating users table: %w", err)
	}
	s.logger.Info().Msg("users table ready")
	return nil
}

// Ping reports pool connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// List returns every row, unfiltered and unpaginated.
func (s *Store) List(ctx context.Context) ([]models.UserRecord, error) {
	s.count("sql.users.list")
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, name, email, phone, address, created_at FROM users`))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing users: %w", err)
	}
	defer rows.Close()

	var out []models.UserRecord
	for rows.Next() {
		var rec models.UserRecord
		var id int64
		if err := rows.Scan(&id, &rec.Name, &rec.Email, &rec.Phone, &rec.Address, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning user row: %w", err)
		}
		rec.Id = strconv.FormatInt(id, 10)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating user rows: %w", err)
	}
	return out, nil
}

// Get returns one row or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*models.UserRecord, error) {
	s.count("sql.users.get")
	numericID, err := parseID(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	var rec models.UserRecord
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, email, phone, address, created_at FROM users WHERE id = ?`),
		numericID)

	var dbID int64
	if err := row.Scan(&dbID, &rec.Name, &rec.Email, &rec.Phone, &rec.Address, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", id, err)
	}
	rec.Id = strconv.FormatInt(dbID, 10)
	return &rec, nil
}

// Insert assigns the auto-increment id and stamps created_at. Email
// collisions surface as storage.ErrDuplicateEmail.
func (s *Store) Insert(ctx context.Context, rec *models.UserRecord) error {
	s.count("sql.users.insert")
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if s.driver == "postgres" {
		var id int64
		err := s.db.QueryRowContext(ctx,
			s.rebind(`INSERT INTO users (name, email, phone, address, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
			rec.Name, rec.Email, rec.Phone, rec.Address, rec.CreatedAt).Scan(&id)
		if err != nil {
			return s.writeError("insert", err)
		}
		rec.Id = strconv.FormatInt(id, 10)
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, address, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Name, rec.Email, rec.Phone, rec.Address, rec.CreatedAt)
	if err != nil {
		return s.writeError("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlstore: reading inserted id: %w", err)
	}
	rec.Id = strconv.FormatInt(id, 10)
	return nil
}

// Update overwrites the mutable fields. created_at is never rewritten.
func (s *Store) Update(ctx context.Context, id string, rec *models.UserRecord) error {
	s.count("sql.users.update")
	numericID, err := parseID(id)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE users SET name = ?, email = ?, phone = ?, address = ? WHERE id = ?`),
		rec.Name, rec.Email, rec.Phone, rec.Address, numericID)
	if err != nil {
		return s.writeError("update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: reading affected rows: %w", err)
	}
	if affected == 0 {
		// Zero rows can also mean a no-op write of identical values; confirm
		// the row is really absent before reporting 404.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return storage.ErrNotFound
		}
	}
	if err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT created_at FROM users WHERE id = ?`), numericID).Scan(&rec.CreatedAt); err != nil {
		return fmt.Errorf("sqlstore: reading created_at for user %s: %w", id, err)
	}
	rec.Id = id
	return nil
}

// Delete removes one row or reports storage.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.count("sql.users.delete")
	numericID, err := parseID(id)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = ?`), numericID)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting user %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: reading affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) writeError(op string, err error) error {
	if isDuplicateKey(err) {
		return storage.ErrDuplicateEmail
	}
	return fmt.Errorf("sqlstore: %s failed: %w", op, err)
}

// isDuplicateKey recognizes unique-constraint violations for both dialects:
// MySQL errno 1062, Postgres SQLSTATE 23505.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func parseID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

func (s *Store) count(name string) {
	if s.metrics != nil {
		_ = s.metrics.Count(name, 1, nil)
	}
}
