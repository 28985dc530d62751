// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FirstBright/goodmap/internal/config"
	"github.com/FirstBright/goodmap/internal/models"
)

// testDBSemaphore limits concurrent database creation to prevent resource
// exhaustion in CI. Concurrent DuckDB CGO calls can hang under pressure, so
// database access is fully serialized across tests.
var testDBSemaphore = make(chan struct{}, 1)

// testDBMutex serializes database creation for short periods to reduce contention.
var testDBMutex sync.Mutex

// setupTestDB creates a new in-memory test database with timeout protection.
// The semaphore is held for the entire test lifecycle (released via t.Cleanup)
// so only one test has an active DuckDB connection at any time.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}

	type result struct {
		db  *DB
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Logf("Failed to close test database: %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s (DuckDB may be under resource pressure)")
		return nil
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestCreateAndGetMarker(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Han River Cafe", 37.5326, 127.0246,
		[]models.Tag{models.TagCafe, models.TagTourismView})
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}
	if marker.ID == "" {
		t.Fatal("expected generated marker ID")
	}

	got, err := db.GetMarker(ctx, marker.ID)
	if err != nil {
		t.Fatalf("GetMarker failed: %v", err)
	}
	if got.Name != "Han River Cafe" {
		t.Errorf("name = %q, want Han River Cafe", got.Name)
	}
	if len(got.Tags) != 2 || got.Tags[0] != models.TagCafe {
		t.Errorf("tags = %v, want [cafe tourism_view]", got.Tags)
	}
	if got.PostIDs == nil || len(got.PostIDs) != 0 {
		t.Errorf("post IDs = %v, want empty slice", got.PostIDs)
	}
	// UUID columns must round-trip as canonical hex, not raw bytes.
	if got.ID != marker.ID {
		t.Errorf("ID = %q, want %q", got.ID, marker.ID)
	}
}

func TestIDsRoundTripCanonically(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Round Trip", 11, 11, nil)
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}
	post, err := db.CreatePost(ctx, marker.ID, "t", "c", "hash")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	gotPost, err := db.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if gotPost.ID != post.ID {
		t.Errorf("post ID = %q, want %q", gotPost.ID, post.ID)
	}
	if gotPost.MarkerID != marker.ID {
		t.Errorf("post MarkerID = %q, want %q", gotPost.MarkerID, marker.ID)
	}

	gotMarker, err := db.GetMarker(ctx, marker.ID)
	if err != nil {
		t.Fatalf("GetMarker failed: %v", err)
	}
	if len(gotMarker.PostIDs) != 1 || gotMarker.PostIDs[0] != post.ID {
		t.Errorf("marker PostIDs = %v, want [%s]", gotMarker.PostIDs, post.ID)
	}
}

func TestCreateMarkerDuplicateLocation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateMarker(ctx, "First", 37.5, 127.0, nil); err != nil {
		t.Fatalf("first CreateMarker failed: %v", err)
	}

	_, err := db.CreateMarker(ctx, "Second", 37.5, 127.0, nil)
	if !errors.Is(err, ErrDuplicateLocation) {
		t.Fatalf("expected ErrDuplicateLocation, got: %v", err)
	}

	// Nearby coordinates are fine - only exact matches collide
	if _, err := db.CreateMarker(ctx, "Third", 37.5000001, 127.0, nil); err != nil {
		t.Fatalf("nearby CreateMarker failed: %v", err)
	}
}

func TestGetMarkerNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetMarker(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestListMarkersFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seed := []struct {
		name string
		lat  float64
		tags []models.Tag
	}{
		{"Sunrise Cafe", 10, []models.Tag{models.TagCafe}},
		{"Harbor View", 20, []models.Tag{models.TagTourismView, models.TagCafe}},
		{"Night Market", 30, []models.Tag{models.TagShopping}},
	}
	for _, s := range seed {
		if _, err := db.CreateMarker(ctx, s.name, s.lat, 0, s.tags); err != nil {
			t.Fatalf("CreateMarker(%s) failed: %v", s.name, err)
		}
	}

	all, err := db.ListMarkers(ctx, nil, "")
	if err != nil {
		t.Fatalf("ListMarkers failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d markers, want 3", len(all))
	}

	// Tag filter requires every requested tag
	cafes, err := db.ListMarkers(ctx, []models.Tag{models.TagCafe}, "")
	if err != nil {
		t.Fatalf("ListMarkers(cafe) failed: %v", err)
	}
	if len(cafes) != 2 {
		t.Errorf("got %d cafe markers, want 2", len(cafes))
	}

	both, err := db.ListMarkers(ctx, []models.Tag{models.TagCafe, models.TagTourismView}, "")
	if err != nil {
		t.Fatalf("ListMarkers(cafe+view) failed: %v", err)
	}
	if len(both) != 1 || both[0].Name != "Harbor View" {
		t.Errorf("got %v, want only Harbor View", both)
	}

	// Name search is case-insensitive substring match
	named, err := db.ListMarkers(ctx, nil, "harbor")
	if err != nil {
		t.Fatalf("ListMarkers(search) failed: %v", err)
	}
	if len(named) != 1 || named[0].Name != "Harbor View" {
		t.Errorf("got %v, want only Harbor View", named)
	}
}

func TestDeleteMarkerBlockedByPosts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Busy Spot", 1, 1, nil)
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}
	if _, err := db.CreatePost(ctx, marker.ID, "hello", "world", "hash"); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if err := db.DeleteMarker(ctx, marker.ID); !errors.Is(err, ErrMarkerHasPosts) {
		t.Fatalf("expected ErrMarkerHasPosts, got: %v", err)
	}

	// Marker must still exist after the refused delete
	if _, err := db.GetMarker(ctx, marker.ID); err != nil {
		t.Fatalf("marker should survive refused delete: %v", err)
	}
}

func TestDeleteMarkerEmpty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Lonely Spot", 2, 2, nil)
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}

	if err := db.DeleteMarker(ctx, marker.ID); err != nil {
		t.Fatalf("DeleteMarker failed: %v", err)
	}
	if _, err := db.GetMarker(ctx, marker.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got: %v", err)
	}

	if err := db.DeleteMarker(ctx, marker.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got: %v", err)
	}
}

func TestForceDeleteMarkerCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Doomed", 3, 3, nil)
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}
	p1, err := db.CreatePost(ctx, marker.ID, "a", "a", "hash")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	p2, err := db.CreatePost(ctx, marker.ID, "b", "b", "hash")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	deleted, err := db.ForceDeleteMarker(ctx, marker.ID)
	if err != nil {
		t.Fatalf("ForceDeleteMarker failed: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted post IDs = %v, want 2 entries", deleted)
	}

	if _, err := db.GetMarker(ctx, marker.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("marker should be gone, got: %v", err)
	}
	if _, err := db.GetPost(ctx, p1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("post %s should be gone, got: %v", p1.ID, err)
	}
	if _, err := db.GetPost(ctx, p2.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("post %s should be gone, got: %v", p2.ID, err)
	}
}

func TestCreatePostRequiresMarker(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.CreatePost(context.Background(),
		"00000000-0000-0000-0000-000000000000", "t", "c", "hash")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetPostsByMarkerOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Spot", 4, 4, nil)
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}

	for _, title := range []string{"first", "second", "third"} {
		if _, err := db.CreatePost(ctx, marker.ID, title, "content", "hash"); err != nil {
			t.Fatalf("CreatePost(%s) failed: %v", title, err)
		}
		time.Sleep(5 * time.Millisecond) // distinct created_at for ordering
	}

	posts, err := db.GetPostsByMarker(ctx, marker.ID)
	if err != nil {
		t.Fatalf("GetPostsByMarker failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(posts))
	}
	if posts[0].Title != "third" || posts[2].Title != "first" {
		t.Errorf("posts not newest-first: %s, %s, %s",
			posts[0].Title, posts[1].Title, posts[2].Title)
	}
}

func TestIncrementLikes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Spot", 5, 5, nil)
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}
	post, err := db.CreatePost(ctx, marker.ID, "t", "c", "hash")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	const n = 10
	for i := 1; i <= n; i++ {
		likes, err := db.IncrementLikes(ctx, post.ID)
		if err != nil {
			t.Fatalf("IncrementLikes #%d failed: %v", i, err)
		}
		if likes != int64(i) {
			t.Errorf("likes after #%d = %d, want %d", i, likes, i)
		}
	}

	got, err := db.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Likes != n {
		t.Errorf("stored likes = %d, want %d", got.Likes, n)
	}
}

func TestIncrementLikesConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Contended", 6, 6, nil)
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}
	post, err := db.CreatePost(ctx, marker.ID, "t", "c", "hash")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	// DuckDB may reject some concurrent writers with a transaction
	// conflict; the counter must equal exactly the number that succeeded.
	const workers = 16
	var wg sync.WaitGroup
	var successes int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.IncrementLikes(ctx, post.ID); err == nil {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes == 0 {
		t.Fatal("every concurrent like failed")
	}
	got, err := db.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Likes != successes {
		t.Errorf("likes = %d, want %d (one per successful increment)", got.Likes, successes)
	}
}

func TestIncrementLikesMissingPost(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.IncrementLikes(context.Background(),
		"00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestListPostsPaging(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	marker, err := db.CreateMarker(ctx, "Spot", 6, 6, nil)
	if err != nil {
		t.Fatalf("CreateMarker failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := db.CreatePost(ctx, marker.ID, "t", "c", "hash"); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	page, err := db.ListPosts(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if page.Total != 5 {
		t.Errorf("total = %d, want 5", page.Total)
	}
	if len(page.Posts) != 2 {
		t.Errorf("page size = %d, want 2", len(page.Posts))
	}

	last, err := db.ListPosts(ctx, 2, 4)
	if err != nil {
		t.Fatalf("ListPosts(offset=4) failed: %v", err)
	}
	if len(last.Posts) != 1 {
		t.Errorf("last page size = %d, want 1", len(last.Posts))
	}
}

func TestAdminSeedAndLookup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	admin, err := db.CreateAdmin(ctx, "root", "$2a$10$hash")
	if err != nil {
		t.Fatalf("CreateAdmin failed: %v", err)
	}
	if !admin.IsAdmin {
		t.Error("seeded admin should have IsAdmin set")
	}

	if _, err := db.CreateAdmin(ctx, "root", "$2a$10$other"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got: %v", err)
	}

	got, err := db.GetAdminByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("GetAdminByUsername failed: %v", err)
	}
	if got.PasswordHash != "$2a$10$hash" {
		t.Errorf("hash = %q, want original hash", got.PasswordHash)
	}

	if err := db.UpdateAdminPassword(ctx, got.ID, "$2a$10$new"); err != nil {
		t.Fatalf("UpdateAdminPassword failed: %v", err)
	}
	got, err = db.GetAdminByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("GetAdminByUsername failed: %v", err)
	}
	if got.PasswordHash != "$2a$10$new" {
		t.Errorf("hash = %q, want updated hash", got.PasswordHash)
	}

	if _, err := db.GetAdminByUsername(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}
