package employees

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureDirectory() *MemoryDirectory {
	return NewMemoryDirectory(
		Employee{ID: 1, DisplayName: "Dana", Extension: "101", Phone: "0521111111"},
		// Phone shares its last 7 digits with employee 3's extension.
		Employee{ID: 2, DisplayName: "Noa", Extension: "102", Phone: "+972-50-123-4567"},
		Employee{ID: 3, DisplayName: "Avi", Extension: "0501234567", Phone: ""},
	)
}

func TestResolver_SentinelAndBlank(t *testing.T) {
	r := NewResolver(fixtureDirectory(), ResolverOptions{TTL: time.Minute})
	assert.Nil(t, r.Resolve(context.Background(), "N/A"))
	assert.Nil(t, r.Resolve(context.Background(), "n/a"))
	assert.Nil(t, r.Resolve(context.Background(), "  "))
}

func TestResolver_Tiers(t *testing.T) {
	r := NewResolver(fixtureDirectory(), ResolverOptions{TTL: time.Minute})
	ctx := context.Background()

	got := r.Resolve(ctx, "101")
	require.NotNil(t, got)
	assert.Equal(t, int64(1), *got)

	got = r.Resolve(ctx, "0521111111")
	require.NotNil(t, got)
	assert.Equal(t, int64(1), *got, "exact phone")

	got = r.Resolve(ctx, "972521111111")
	require.NotNil(t, got)
	assert.Equal(t, int64(1), *got, "suffix against phone")

	assert.Nil(t, r.Resolve(ctx, "999"))
	assert.Nil(t, r.Resolve(ctx, "12345"), "too short for suffix tier")
	assert.Nil(t, r.Resolve(ctx, "05x1234567"), "non-numeric skips suffix tier")
}

func TestResolver_ExactExtensionBeatsSuffix(t *testing.T) {
	r := NewResolver(fixtureDirectory(), ResolverOptions{TTL: time.Minute})

	// Employee 2's phone also ends in 1234567, but employee 3 owns the exact extension.
	got := r.Resolve(context.Background(), "0501234567")
	require.NotNil(t, got)
	assert.Equal(t, int64(3), *got)

	// Without the exact extension the suffix tier picks employee 2 (lowest id matching).
	got = r.Resolve(context.Background(), "9721234567")
	require.NotNil(t, got)
	assert.Equal(t, int64(2), *got)
}

func TestResolver_CachesDirectoryWithinTTL(t *testing.T) {
	dir := fixtureDirectory()
	r := NewResolver(dir, ResolverOptions{TTL: time.Minute})
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Resolve(context.Background(), "101")
	r.Resolve(context.Background(), "102")
	assert.Equal(t, 1, dir.ListCalls)

	now = now.Add(2 * time.Minute)
	r.Resolve(context.Background(), "101")
	assert.Equal(t, 2, dir.ListCalls)

	r.Invalidate()
	r.Resolve(context.Background(), "101")
	assert.Equal(t, 3, dir.ListCalls)
}

func TestResolver_ConcurrentResolvesShareLoad(t *testing.T) {
	dir := fixtureDirectory()
	r := NewResolver(dir, ResolverOptions{TTL: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := r.Resolve(context.Background(), "101")
			assert.NotNil(t, got)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, dir.ListCalls, 20)
	assert.GreaterOrEqual(t, dir.ListCalls, 1)
}

func TestResolver_DirectoryErrorResolvesNil(t *testing.T) {
	dir := fixtureDirectory()
	dir.Err = errors.New("db down")
	r := NewResolver(dir, ResolverOptions{})
	assert.Nil(t, r.Resolve(context.Background(), "101"))
}
