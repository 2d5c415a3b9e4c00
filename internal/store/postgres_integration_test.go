//go:build postgres_integration

package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(t.Context(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.DeleteAll(t.Context()))
	runContract(t, p)
}
