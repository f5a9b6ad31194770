package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"qrpass/entity"
	"qrpass/internal/config"
	"qrpass/internal/database/migrations"
	"qrpass/lib/sl"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	mysqlErrDuplicateEntry = 1062

	selectPass = `SELECT token, name, phone, note, status, batch, created_at, checked_in_at FROM passes WHERE token = ?`
)

// SQL stores passes in MySQL or SQLite. Timestamps are unix milliseconds.
type SQL struct {
	db      *sql.DB
	dialect string
	log     *slog.Logger
}

func NewSQLClient(ctx context.Context, dialect string, conf config.SQLConfig, log *slog.Logger) (*SQL, error) {
	logger := log.With(sl.Module("database.sql"), slog.String("dialect", dialect))

	var driverName, gooseDialect string
	switch dialect {
	case config.DriverMySQL:
		driverName, gooseDialect = "mysql", "mysql"
	case config.DriverSQLite:
		driverName, gooseDialect = "sqlite", "sqlite3"
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}

	db, err := sql.Open(driverName, conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	// wait for a database that is still starting
	err = withRetry(ctx, logger, conf.PingAttempts, conf.RetryDelay, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err = migrate(ctx, db, gooseDialect, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	if dialect == config.DriverSQLite {
		// sqlite allows one writer; the conditional update is still the only guard
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(conf.MaxOpenConns)
		db.SetMaxIdleConns(conf.MaxIdleConns)
		db.SetConnMaxLifetime(conf.ConnMaxLifetime)
	}

	logger.Info("connected to sql database")
	return newSQL(db, dialect, logger), nil
}

func newSQL(db *sql.DB, dialect string, log *slog.Logger) *SQL {
	return &SQL{
		db:      db,
		dialect: dialect,
		log:     log,
	}
}

func migrate(ctx context.Context, db *sql.DB, gooseDialect, dir string) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	return nil
}

func (s *SQL) CreatePass(ctx context.Context, pass *entity.Pass) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passes (token, name, phone, note, status, batch, created_at, checked_in_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pass.Token,
		pass.Name,
		nullString(pass.Phone),
		nullString(pass.Note),
		string(pass.Status),
		pass.Batch,
		pass.CreatedAt.UnixMilli(),
		nullMillis(pass.CheckedInAt),
	)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("sql insert: %w", err)
	}
	return nil
}

func (s *SQL) GetPass(ctx context.Context, token string) (*entity.Pass, error) {
	return scanPass(s.db.QueryRowContext(ctx, selectPass, token))
}

// CheckIn runs the conditional update and the read of the updated row in one transaction,
// so the returned snapshot is the row this call wrote. Concurrent updaters of the same
// token block on the row lock and then match zero rows.
func (s *SQL) CheckIn(ctx context.Context, token string, now time.Time) (*entity.Pass, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sql begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE passes SET status = ?, checked_in_at = ? WHERE token = ? AND status = ?`,
		string(entity.StatusUsed), now.UnixMilli(), token, string(entity.StatusUnused),
	)
	if err != nil {
		return nil, fmt.Errorf("sql update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sql rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	pass, err := scanPass(tx.QueryRowContext(ctx, selectPass, token))
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("sql commit: %w", err)
	}
	return pass, nil
}

func (s *SQL) ResetPass(ctx context.Context, token string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE passes SET status = ?, checked_in_at = NULL WHERE token = ?`,
		string(entity.StatusUnused), token,
	)
	if err != nil {
		return false, fmt.Errorf("sql update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sql rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	// MySQL reports changed rows only; an already unused pass still exists
	pass, err := s.GetPass(ctx, token)
	if err != nil {
		return false, err
	}
	return pass != nil, nil
}

func (s *SQL) CountByStatus(ctx context.Context, status entity.Status) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passes WHERE status = ?`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sql count: %w", err)
	}
	return count, nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) Close(_ context.Context) error {
	return s.db.Close()
}

func scanPass(row *sql.Row) (*entity.Pass, error) {
	var (
		pass        entity.Pass
		status      string
		phone       sql.NullString
		note        sql.NullString
		createdAt   int64
		checkedInAt sql.NullInt64
	)
	err := row.Scan(&pass.Token, &pass.Name, &phone, &note, &status, &pass.Batch, &createdAt, &checkedInAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sql scan: %w", err)
	}
	pass.Status = entity.Status(status)
	pass.CreatedAt = time.UnixMilli(createdAt).UTC()
	if phone.Valid {
		pass.Phone = &phone.String
	}
	if note.Valid {
		pass.Note = &note.String
	}
	if checkedInAt.Valid {
		at := time.UnixMilli(checkedInAt.Int64).UTC()
		pass.CheckedInAt = &at
	}
	return &pass, nil
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: value.UnixMilli(), Valid: true}
}
