package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"

	"github.com/subhatta123/bitool-sub002/internal/config"
	"github.com/subhatta123/bitool-sub002/internal/database"
)

func newMockMySQLDB(t *testing.T) (*database.DB, sqlmock.Sqlmock, *mysqlHandler) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	handler := mysqlHandler{}
	db := &database.DB{
		Pool:    mockDb,
		Handler: &handler,
		Config:  config.DatabaseConfig{Dialect: "mysql"},
	}
	return db, mock, &handler
}

func TestMySQLQuoteIdentifier(t *testing.T) {
	handler := mysqlHandler{}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Simple name", "orders", "`orders`"},
		{"Name with backtick", "my`table", "`my``table`"},
		{"Empty name", "", "``"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handler.QuoteIdentifier(tt.in); got != tt.want {
				t.Errorf("QuoteIdentifier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMySQLListTables(t *testing.T) {
	db, mock, handler := newMockMySQLDB(t)
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

func TestMySQLClassifyError(t *testing.T) {
	handler := mysqlHandler{}

	tests := []struct {
		name string
		err  error
		want database.ErrorKind
	}{
		{"nil", nil, database.ErrorKindOther},
		{"bad field", &gomysql.MySQLError{Number: 1054}, database.ErrorKindColumnNotFound},
		{"no such table", &gomysql.MySQLError{Number: 1146}, database.ErrorKindTableNotFound},
		{"parse error", &gomysql.MySQLError{Number: 1064}, database.ErrorKindSyntax},
		{"too many connections", &gomysql.MySQLError{Number: 1040}, database.ErrorKindConnection},
		{"server gone", &gomysql.MySQLError{Number: 2006}, database.ErrorKindConnection},
		{"unknown column message", errors.New("Unknown column 'Total Sales' in 'field list'"), database.ErrorKindColumnNotFound},
		{"missing table message", errors.New("Table 'sales.orders2' doesn't exist"), database.ErrorKindTableNotFound},
		{"syntax message", errors.New("You have an error in your SQL syntax"), database.ErrorKindSyntax},
		{"unrelated", errors.New("access denied"), database.ErrorKindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handler.ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
