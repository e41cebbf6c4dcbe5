package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPostgresStore runs the store suite against a real database.
// Set TEST_DATABASE_URL to a disposable database to enable it.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runStoreSuite(t, func(t *testing.T) Store {
		_, err := pool.Exec(ctx, `TRUNCATE messages, friends, group_members, chat_groups, users`)
		require.NoError(t, err)
		return NewPostgresStore(pool)
	})
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	require.Equal(t, `%50\%\_off\\%`, likePattern(`50%_off\`))
}
