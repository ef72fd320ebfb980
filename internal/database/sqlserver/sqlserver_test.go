package sqlserver

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mssql "github.com/denisenkom/go-mssqldb"

	"github.com/subhatta123/bitool-sub002/internal/config"
	"github.com/subhatta123/bitool-sub002/internal/database"
)

func newMockSQLServerDB(t *testing.T) (*database.DB, sqlmock.Sqlmock, *sqlServerHandler) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	handler := sqlServerHandler{}
	db := &database.DB{
		Pool:    mockDb,
		Handler: &handler,
		Config:  config.DatabaseConfig{Dialect: "sqlserver"},
	}
	return db, mock, &handler
}

func TestSQLServerQuoteIdentifier(t *testing.T) {
	handler := sqlServerHandler{}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Simple name", "orders", "[orders]"},
		{"Name with bracket", "my]table", "[my]]table]"},
		{"Empty name", "", "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handler.QuoteIdentifier(tt.in); got != tt.want {
				t.Errorf("QuoteIdentifier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSQLServerListTables(t *testing.T) {
	db, mock, handler := newMockSQLServerDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"table_name"}).AddRow("orders")
	mock.ExpectQuery("SELECT table_name").WillReturnRows(rows)

	tables, err := handler.ListTables(context.Background(), db)
	if err != nil {
		t.Fatalf("ListTables() unexpected error: %v", err)
	}
	if len(tables) != 1 || tables[0] != "orders" {
		t.Errorf("ListTables() = %v, want [orders]", tables)
	}
}

func TestSQLServerClassifyError(t *testing.T) {
	handler := sqlServerHandler{}

	tests := []struct {
		name string
		err  error
		want database.ErrorKind
	}{
		{"nil", nil, database.ErrorKindOther},
		{"invalid column", mssql.Error{Number: 207}, database.ErrorKindColumnNotFound},
		{"invalid object", mssql.Error{Number: 208}, database.ErrorKindTableNotFound},
		{"incorrect syntax", mssql.Error{Number: 102}, database.ErrorKindSyntax},
		{"unclosed quotation", mssql.Error{Number: 105}, database.ErrorKindSyntax},
		{"column message fallback", errors.New("Invalid column name 'Total Sales'."), database.ErrorKindColumnNotFound},
		{"object message fallback", errors.New("Invalid object name 'orders2'."), database.ErrorKindTableNotFound},
		{"syntax message fallback", errors.New("Incorrect syntax near 'LIMIT'."), database.ErrorKindSyntax},
		{"connection message", errors.New("unable to open tcp connection with host"), database.ErrorKindConnection},
		{"unrelated", errors.New("login failed"), database.ErrorKindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handler.ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
