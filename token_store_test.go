package goVault

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newTokenStore(rdb, "vtk")
	now := time.Now().Unix()

	record := &tokenRecord{
		PrincipalID: "user-1",
		Username:    "carol",
		Groups:      []string{"eng", "ops"},
		IsAdmin:     true,
		IssuedAt:    now,
		ExpiresAt:   now + 3600,
	}
	if err := store.Save(context.Background(), "sid-1", record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.PrincipalID != "user-1" || got.Username != "carol" || !got.IsAdmin {
		t.Fatalf("record = %+v", got)
	}
	if len(got.Groups) != 2 || got.Groups[0] != "eng" || got.Groups[1] != "ops" {
		t.Fatalf("groups = %v", got.Groups)
	}
	if got.ExpiresAt != record.ExpiresAt {
		t.Fatalf("ExpiresAt = %d, want %d", got.ExpiresAt, record.ExpiresAt)
	}
}

func TestTokenStoreMissingRecord(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newTokenStore(rdb, "vtk")
	_, err := store.Get(context.Background(), "never-saved")
	if !errors.Is(err, errTokenRecordNotFound) {
		t.Fatalf("err = %v, want errTokenRecordNotFound", err)
	}
}

func TestTokenStoreRejectsPastExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newTokenStore(rdb, "vtk")
	record := &tokenRecord{
		PrincipalID: "user-1",
		Username:    "carol",
		IssuedAt:    time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt:   time.Now().Add(-time.Hour).Unix(),
	}
	// A long redis TTL with a past logical expiry simulates clock drift
	// between writer and reader.
	if err := store.Save(context.Background(), "sid-1", record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, err := store.Get(context.Background(), "sid-1")
	if !errors.Is(err, errTokenRecordExpired) {
		t.Fatalf("err = %v, want errTokenRecordExpired", err)
	}

	// The expired record was removed.
	_, err = store.Get(context.Background(), "sid-1")
	if !errors.Is(err, errTokenRecordNotFound) {
		t.Fatalf("after cleanup: err = %v, want errTokenRecordNotFound", err)
	}
}

func TestTokenStoreDelete(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newTokenStore(rdb, "vtk")
	record := &tokenRecord{
		PrincipalID: "user-1",
		Username:    "carol",
		IssuedAt:    time.Now().Unix(),
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}
	if err := store.Save(context.Background(), "sid-1", record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	deleted, err := store.Delete(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}

	deleted, err = store.Delete(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if deleted {
		t.Fatal("second delete should be a no-op")
	}
}

func TestTokenStoreBackendDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	store := newTokenStore(rdb, "vtk")
	_, err := store.Get(context.Background(), "sid-1")
	if !errors.Is(err, errTokenRecordBackend) {
		t.Fatalf("err = %v, want errTokenRecordBackend", err)
	}
}
