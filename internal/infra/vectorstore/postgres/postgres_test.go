package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUndefinedTable(t *testing.T) {
	undefined := &pgconn.PgError{Code: "42P01", Message: `relation "document_chunks" does not exist`}
	require.True(t, isUndefinedTable(undefined))
	require.True(t, isUndefinedTable(fmt.Errorf("truncate: %w", undefined)))

	require.False(t, isUndefinedTable(nil))
	require.False(t, isUndefinedTable(&pgconn.PgError{Code: "42501"}))
	require.False(t, isUndefinedTable(fmt.Errorf("connection refused")))
}
