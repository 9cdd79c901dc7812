package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
)

func TestOf_Deterministic(t *testing.T) {
	urls := []string{
		"http://a.example/1",
		"https://example.com/post?id=7#comments",
		"https://例え.jp/記事",
	}
	for _, u := range urls {
		first, err := Of(u)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Of(u)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
		assert.Len(t, first, Length)
		assert.True(t, Valid(first))
	}
}

func TestOf_KnownValue(t *testing.T) {
	// md5("hello") = 5d41402abc4b2a76b9719d911017c592
	got, err := Of("hello")
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76", got)
}

func TestOf_QueryAndFragmentMatter(t *testing.T) {
	a, _ := Of("https://example.com/a")
	b, _ := Of("https://example.com/a?x=1")
	c, _ := Of("https://example.com/a#top")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestOf_Empty(t *testing.T) {
	for _, u := range []string{"", "   "} {
		_, err := Of(u)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("5d41402abc4b2a76"))
	assert.False(t, Valid("5d41402abc4b2a7"))
	assert.False(t, Valid("5D41402ABC4B2A76"))
	assert.False(t, Valid("../../etc/passwd"))
}
