// Package storetest holds behaviour every ports.Repository must show.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// Factory returns a fresh, empty repository.
type Factory func(t *testing.T) ports.Repository

func Summary(fp, url, text string) *domain.Summary {
	return &domain.Summary{
		Fingerprint: fp,
		URL:         url,
		Title:       "Title " + text,
		Short:       "short " + text,
		Medium:      "medium " + text,
		Detailed:    "detailed " + text,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func Run(t *testing.T, newRepo Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.Get(context.Background(), "0000000000000000")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("InsertThenGet", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		in := Summary("aaaaaaaaaaaaaaaa", "https://a.example/1", "A")

		res, err := repo.Insert(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, domain.Created, res)
		assert.NotZero(t, in.ID)

		got, err := repo.Get(ctx, in.Fingerprint)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, in.URL, got.URL)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, in.Short, got.Short)
		assert.Equal(t, in.Medium, got.Medium)
		assert.Equal(t, in.Detailed, got.Detailed)
	})

	t.Run("InsertDuplicateKeepsFirst", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		res, err := repo.Insert(ctx, Summary("bbbbbbbbbbbbbbbb", "https://b.example/2", "first"))
		require.NoError(t, err)
		require.Equal(t, domain.Created, res)

		res, err = repo.Insert(ctx, Summary("bbbbbbbbbbbbbbbb", "https://b.example/2", "second"))
		require.NoError(t, err)
		assert.Equal(t, domain.AlreadyExists, res)

		got, err := repo.Get(ctx, "bbbbbbbbbbbbbbbb")
		require.NoError(t, err)
		assert.Equal(t, "short first", got.Short)
	})

	t.Run("ConcurrentInsertSingleWinner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		const n = 20

		var wg sync.WaitGroup
		results := make([]domain.InsertResult, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = repo.Insert(ctx, Summary("cccccccccccccccc", "https://c.example/3", fmt.Sprint(i)))
			}(i)
		}
		wg.Wait()

		created := 0
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			if results[i] == domain.Created {
				created++
			}
		}
		assert.Equal(t, 1, created)

		all, err := repo.Dump(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("AppendUnknownFingerprint", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Append(context.Background(), &domain.UsageEvent{Fingerprint: "dddddddddddddddd", Kind: domain.EventView})
		assert.ErrorIs(t, err, domain.ErrSummaryNotFound)
	})

	t.Run("CountViewsAndStats", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, err := repo.Insert(ctx, Summary("eeeeeeeeeeeeeeee", "https://e.example/5", "E"))
		require.NoError(t, err)

		count, err := repo.CountViews(ctx, "eeeeeeeeeeeeeeee")
		require.NoError(t, err)
		assert.Zero(t, count)

		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Append(ctx, &domain.UsageEvent{Fingerprint: "eeeeeeeeeeeeeeee", Kind: domain.EventView, UserAgent: "ua"}))
			count, err = repo.CountViews(ctx, "eeeeeeeeeeeeeeee")
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), count)
		}
		require.NoError(t, repo.Append(ctx, &domain.UsageEvent{Fingerprint: "eeeeeeeeeeeeeeee", Kind: domain.EventShare}))

		stats, err := repo.Stats(ctx, "eeeeeeeeeeeeeeee")
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.Views)
		assert.Equal(t, int64(1), stats.Shares)
		require.Len(t, stats.DailyViews, 1)
		assert.Equal(t, int64(3), stats.DailyViews[0].Count)

		count, err = repo.CountViews(ctx, "eeeeeeeeeeeeeeee")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count, "share events are not views")
	})

	t.Run("ConcurrentAppendsAreAllCounted", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, err := repo.Insert(ctx, Summary("ffffffffffffffff", "https://f.example/6", "F"))
		require.NoError(t, err)

		const n = 30
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Append(ctx, &domain.UsageEvent{Fingerprint: "ffffffffffffffff", Kind: domain.EventView})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		count, err := repo.CountViews(ctx, "ffffffffffffffff")
		require.NoError(t, err)
		assert.Equal(t, int64(n), count)
	})

	t.Run("ListAndGlobalStats", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		older := Summary("1111111111111111", "https://g.example/old", "old")
		older.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
		newer := Summary("2222222222222222", "https://g.example/new", "new")
		for _, s := range []*domain.Summary{older, newer} {
			_, err := repo.Insert(ctx, s)
			require.NoError(t, err)
		}
		for i := 0; i < 2; i++ {
			require.NoError(t, repo.Append(ctx, &domain.UsageEvent{Fingerprint: older.Fingerprint, Kind: domain.EventView}))
		}
		require.NoError(t, repo.Append(ctx, &domain.UsageEvent{Fingerprint: newer.Fingerprint, Kind: domain.EventView}))

		list, err := repo.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.Fingerprint, list[0].Fingerprint)
		assert.Equal(t, int64(1), list[0].Views)
		assert.Equal(t, int64(2), list[1].Views)

		limited, err := repo.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		stats, err := repo.GlobalStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalSummaries)
		assert.Equal(t, int64(3), stats.TotalViews)
		assert.Equal(t, int64(1), stats.TotalReuses)
	})
}
