/*
 * Copyright 2025 the bitool authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/subhatta123/bitool-sub002/internal/config"
	"github.com/subhatta123/bitool-sub002/internal/database"
)

// postgresHandler implements database.DialectHandler for PostgreSQL.
type postgresHandler struct{}

var _ database.DialectHandler = (*postgresHandler)(nil)

func init() {
	handler := postgresHandler{}
	database.RegisterDialectHandler("postgres", handler)
	database.RegisterDialectHandler("cloudsqlpostgres", handler)
}

// CreateCloudSQLPool connects through the Cloud SQL connector.
func (h postgresHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("user=%s password=%s database=%s", cfg.User, cfg.Password, cfg.DBName)
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	var opts []cloudsqlconn.Option
	if cfg.UsePrivateIP {
		opts = append(opts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
	}
	d, err := cloudsqlconn.NewDialer(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	instance := cfg.CloudSQLInstanceConnectionName
	connConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(ctx, instance)
	}
	dbURI := stdlib.RegisterConnConfig(connConfig)
	pool, err := sql.Open("pgx", dbURI)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return pool, nil
}

// CreateStandardPool creates a standard PostgreSQL connection pool.
func (h postgresHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	pool, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return pool, nil
}

// QuoteIdentifier wraps a name in double quotes, escaping embedded quotes.
func (h postgresHandler) QuoteIdentifier(name string) string {
	name = strings.ReplaceAll(name, `"`, `""`)
	return fmt.Sprintf(`"%s"`, name)
}

func (h postgresHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_type = 'BASE TABLE'
		ORDER BY table_name;`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("error scanning table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table rows: %w", err)
	}
	return tables, nil
}

func (h postgresHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]database.ColumnInfo, error) {
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = $1
		ORDER BY ordinal_position;`

	rows, err := db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []database.ColumnInfo
	for rows.Next() {
		var colInfo database.ColumnInfo
		var nullable string
		if err := rows.Scan(&colInfo.Name, &colInfo.DataType, &nullable); err != nil {
			return nil, fmt.Errorf("error scanning column info: %w", err)
		}
		colInfo.Nullable = strings.EqualFold(nullable, "YES")
		columns = append(columns, colInfo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}
	return columns, nil
}

func (h postgresHandler) CountRows(ctx context.Context, db *database.DB, tableName string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", h.QuoteIdentifier(tableName))
	var count int64
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows for table %s: %w", tableName, err)
	}
	return count, nil
}

func (h postgresHandler) SampleColumnValues(ctx context.Context, db *database.DB, tableName, columnName string, limit int) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT CAST(%s AS TEXT) FROM %s WHERE %s IS NOT NULL LIMIT %d",
		h.QuoteIdentifier(columnName), h.QuoteIdentifier(tableName), h.QuoteIdentifier(columnName), limit,
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sample values for %s.%s: %w", tableName, columnName, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("error scanning sampled value: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sampled values: %w", err)
	}
	return values, nil
}

// ClassifyError maps PostgreSQL errors onto the engine error taxonomy.
func (h postgresHandler) ClassifyError(err error) database.ErrorKind {
	if err == nil {
		return database.ErrorKindOther
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind := classifySQLState(pgErr.Code); kind != database.ErrorKindOther {
			return kind
		}
	}
	// The standard pool opens through lib/pq, which reports *pq.Error with
	// the same SQLSTATE codes.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind := classifySQLState(string(pqErr.Code)); kind != database.ErrorKindOther {
			return kind
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "column") && strings.Contains(msg, "does not exist"):
		return database.ErrorKindColumnNotFound
	case strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"):
		return database.ErrorKindTableNotFound
	case strings.Contains(msg, "syntax error"):
		return database.ErrorKindSyntax
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return database.ErrorKindConnection
	}
	return database.ErrorKindOther
}

func classifySQLState(code string) database.ErrorKind {
	switch code {
	case "42703": // undefined_column
		return database.ErrorKindColumnNotFound
	case "42P01": // undefined_table
		return database.ErrorKindTableNotFound
	case "42601": // syntax_error
		return database.ErrorKindSyntax
	}
	if strings.HasPrefix(code, "08") {
		return database.ErrorKindConnection
	}
	return database.ErrorKindOther
}
