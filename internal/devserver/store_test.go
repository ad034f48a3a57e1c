package devserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "votes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreOneVotePerUser(t *testing.T) {
	ctx := context.Background()
	q := Key{ItemType: "question", ItemID: "1"}

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			steps := []struct {
				user  string
				value int
				want  int
			}{
				{"alice", 1, 1},
				{"bob", 1, 2},
				{"alice", -1, 0},
				{"alice", 0, 1},
				{"carol", -1, 0},
			}
			for _, st := range steps {
				got, err := s.Cast(ctx, st.user, q, st.value)
				require.NoError(t, err)
				assert.Equal(t, st.want, got, "after %s voted %d", st.user, st.value)
			}

			score, err := s.Score(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, 0, score)

			other, err := s.Score(ctx, Key{ItemType: "answer", ItemID: "1"})
			require.NoError(t, err)
			assert.Equal(t, 0, other, "items of different type are separate")
		})
	}
}

func TestStoreTotals(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Cast(ctx, "a", Key{"question", "1"}, 1)
			require.NoError(t, err)
			_, err = s.Cast(ctx, "b", Key{"question", "1"}, -1)
			require.NoError(t, err)
			_, err = s.Cast(ctx, "a", Key{"answer", "7"}, 1)
			require.NoError(t, err)
			_, err = s.Cast(ctx, "c", Key{"answer", "7"}, 0)
			require.NoError(t, err)

			totals, err := s.Totals(ctx)
			require.NoError(t, err)
			assert.Equal(t, Totals{Votes: 3, Up: 2, Down: 1}, totals)
		})
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "votes.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.Cast(ctx, "alice", Key{"question", "3"}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	score, err := reopened.Score(ctx, Key{"question", "3"})
	require.NoError(t, err)
	assert.Equal(t, 1, score)
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	_, err := s.Cast(context.Background(), "a", Key{"question", "1"}, 1)
	assert.ErrorIs(t, err, ErrClosed)
}
