package cache

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/tinyread/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/tinyread/pkg/adapters/repository/storetest"
	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// countingRepo counts Get calls that reach the backing store.
type countingRepo struct {
	ports.Repository
	gets int
}

func (c *countingRepo) Get(ctx context.Context, fp string) (*domain.Summary, error) {
	c.gets++
	return c.Repository.Get(ctx, fp)
}

func TestCache_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Repository {
		return New(memory.NewRepository(), 1, 0, zerolog.Nop())
	})
}

func TestCache_DisabledReturnsBackingRepo(t *testing.T) {
	backing := memory.NewRepository()
	repo := New(backing, 0, 0, zerolog.Nop())
	assert.Same(t, backing, repo)
}

func TestCache_ServesRepeatReadsFromMemory(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{Repository: memory.NewRepository()}
	repo := New(backing, 1, 0, zerolog.Nop())

	_, err := backing.Insert(ctx, storetest.Summary("aaaaaaaaaaaaaaaa", "https://a.example", "A"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := repo.Get(ctx, "aaaaaaaaaaaaaaaa")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "short A", got.Short)
	}
	assert.Equal(t, 1, backing.gets)
	assert.Equal(t, int64(1), repo.(*Repository).EntryCount())
}

func TestCache_MissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{Repository: memory.NewRepository()}
	repo := New(backing, 1, 0, zerolog.Nop())

	got, err := repo.Get(ctx, "bbbbbbbbbbbbbbbb")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.Insert(ctx, storetest.Summary("bbbbbbbbbbbbbbbb", "https://b.example", "B"))
	require.NoError(t, err)

	got, err = repo.Get(ctx, "bbbbbbbbbbbbbbbb")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, backing.gets, "created row is served from the cache")
}

func TestCache_CollisionDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := New(memory.NewRepository(), 1, 0, zerolog.Nop())

	_, err := repo.Insert(ctx, storetest.Summary("cccccccccccccccc", "https://c.example", "winner"))
	require.NoError(t, err)
	res, err := repo.Insert(ctx, storetest.Summary("cccccccccccccccc", "https://c.example", "loser"))
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyExists, res)

	got, err := repo.Get(ctx, "cccccccccccccccc")
	require.NoError(t, err)
	assert.Equal(t, "short winner", got.Short)
}
