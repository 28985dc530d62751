// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/FirstBright/goodmap/internal/config"
	"github.com/FirstBright/goodmap/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) *PostsCache {
	t.Helper()

	c, err := New(&config.CacheConfig{
		Enabled:  true,
		Path:     "", // in-memory
		PostsTTL: ttl,
	})
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Logf("Failed to close cache: %v", err)
		}
	})
	return c
}

func samplePosts(markerID string) []models.Post {
	return []models.Post{
		{ID: "p2", MarkerID: markerID, Title: "newer", Content: "b", Likes: 3, CreatedAt: time.Now().UTC()},
		{ID: "p1", MarkerID: markerID, Title: "older", Content: "a", Likes: 1, CreatedAt: time.Now().UTC().Add(-time.Minute)},
	}
}

func TestGetPostsMissOnEmptyCache(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, time.Minute)

	if _, err := c.GetPosts("m1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got: %v", err)
	}
}

func TestSetAndGetPosts(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, time.Minute)

	c.SetPosts("m1", samplePosts("m1"))

	posts, err := c.GetPosts("m1")
	if err != nil {
		t.Fatalf("GetPosts failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].ID != "p2" || posts[1].ID != "p1" {
		t.Errorf("order not preserved: %s, %s", posts[0].ID, posts[1].ID)
	}
	if posts[0].Likes != 3 {
		t.Errorf("likes = %d, want 3", posts[0].Likes)
	}
}

func TestCachedPostsNeverContainPasswordHash(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, time.Minute)

	posts := samplePosts("m1")
	posts[0].PasswordHash = "$2a$10$secret"
	c.SetPosts("m1", posts)

	got, err := c.GetPosts("m1")
	if err != nil {
		t.Fatalf("GetPosts failed: %v", err)
	}
	for _, p := range got {
		if p.PasswordHash != "" {
			t.Errorf("post %s: password hash survived the cache round trip", p.ID)
		}
	}
}

func TestSetPostsEmptyList(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, time.Minute)

	// Empty lists are cached too: a marker with no posts should not hit the
	// database on every lookup
	c.SetPosts("m1", nil)

	posts, err := c.GetPosts("m1")
	if err != nil {
		t.Fatalf("GetPosts failed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("got %v, want empty slice", posts)
	}
}

func TestInvalidate(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, time.Minute)

	c.SetPosts("m1", samplePosts("m1"))
	c.SetPosts("m2", samplePosts("m2"))

	c.Invalidate("m1")

	if _, err := c.GetPosts("m1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after invalidation, got: %v", err)
	}
	// Other markers are untouched
	if _, err := c.GetPosts("m2"); err != nil {
		t.Fatalf("unrelated entry should survive: %v", err)
	}
}

func TestInvalidateMissingKeyIsNoop(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, time.Minute)

	c.Invalidate("never-set") // must not panic or trip the breaker

	c.SetPosts("m1", samplePosts("m1"))
	if _, err := c.GetPosts("m1"); err != nil {
		t.Fatalf("cache should still work after no-op invalidation: %v", err)
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	// Badger TTLs have one-second granularity; anything shorter expires
	// immediately.
	c := newTestCache(t, time.Second)

	c.SetPosts("m1", samplePosts("m1"))

	if _, err := c.GetPosts("m1"); err != nil {
		t.Fatalf("entry should be fresh: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := c.GetPosts("m1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after TTL, got: %v", err)
	}
}

func TestRepeatedMissesDoNotDisableWrites(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, time.Minute)

	c.SetPosts("m1", samplePosts("m1"))

	// A burst of misses is the normal state after invalidations and must
	// not open the breaker, drop writes, or leave stale entries behind.
	for i := 0; i < 20; i++ {
		if _, err := c.GetPosts("absent"); !errors.Is(err, ErrMiss) {
			t.Fatalf("miss %d: expected ErrMiss, got: %v", i, err)
		}
	}

	c.Invalidate("m1")
	if _, err := c.GetPosts("m1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("invalidation was dropped: %v", err)
	}

	c.SetPosts("m2", samplePosts("m2"))
	if _, err := c.GetPosts("m2"); err != nil {
		t.Fatalf("write after miss burst was dropped: %v", err)
	}
}

func TestRunGCInMemory(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, time.Minute)

	if err := c.RunGC(); err != nil {
		t.Fatalf("RunGC on in-memory store should be a no-op: %v", err)
	}
}
