package cache

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func uptr(v uint64) *uint64 { return &v }
func bptr(v bool) *bool     { return &v }
func sptr(v string) *string { return &v }

func TestMergeIsAdditive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Merge(ctx, Snapshot{Level: uptr(3), PriceWei: big.NewInt(1e16)})
	store.Merge(ctx, Snapshot{PresaleActive: bptr(true)})

	snap := store.Load(ctx)
	if snap.Level == nil || *snap.Level != 3 {
		t.Fatalf("level lost across merges: %+v", snap)
	}
	if snap.PriceWei == nil || snap.PriceWei.Cmp(big.NewInt(1e16)) != 0 {
		t.Fatalf("price lost across merges: %+v", snap)
	}
	if snap.PresaleActive == nil || !*snap.PresaleActive {
		t.Fatalf("presale flag missing: %+v", snap)
	}

	// A later partial overwrites only the field it carries.
	store.Merge(ctx, Snapshot{Level: uptr(4)})
	snap = store.Load(ctx)
	if *snap.Level != 4 || snap.PriceWei.Cmp(big.NewInt(1e16)) != 0 {
		t.Fatalf("partial overwrite clobbered other fields: %+v", snap)
	}
}

func TestFresh(t *testing.T) {
	if Fresh(Snapshot{}, DefaultTTL) {
		t.Fatal("zero timestamp must not be fresh")
	}
	if !Fresh(Snapshot{UpdatedAt: time.Now()}, DefaultTTL) {
		t.Fatal("just-stamped snapshot must be fresh")
	}
	stale := Snapshot{UpdatedAt: time.Now().Add(-DefaultTTL - time.Millisecond)}
	if Fresh(stale, DefaultTTL) {
		t.Fatal("snapshot past the ttl must be stale")
	}
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	ctx := context.Background()

	store := NewFileStore(path)
	store.Merge(ctx, Snapshot{Level: uptr(7), Phase: sptr("jackpot"), TakenSymbols: []uint8{1, 5}})
	store.SaveReferralCode(ctx, "DEGEN123")

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	reopened := NewFileStore(path)
	snap := reopened.Load(ctx)
	if snap.Level == nil || *snap.Level != 7 {
		t.Fatalf("level not persisted: %+v", snap)
	}
	if snap.Phase == nil || *snap.Phase != "jackpot" {
		t.Fatalf("phase not persisted: %+v", snap)
	}
	if len(snap.TakenSymbols) != 2 {
		t.Fatalf("taken symbols not persisted: %+v", snap)
	}
	if snap.UpdatedAt.IsZero() {
		t.Fatal("merge must stamp the snapshot")
	}
	if got := reopened.ReferralCode(ctx); got != "DEGEN123" {
		t.Fatalf("referral code not persisted: %q", got)
	}
}

func TestFileStoreSwallowsStorageErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Parent of the cache path is a regular file: every write must fail,
	// and none of that may escape the store.
	store := NewFileStore(filepath.Join(blocker, "sub", "cache.json"))
	ctx := context.Background()

	store.Merge(ctx, Snapshot{Level: uptr(1)})
	store.SaveReferralCode(ctx, "CODE")

	snap := store.Load(ctx)
	if snap.Level != nil || !snap.UpdatedAt.IsZero() {
		t.Fatalf("expected empty snapshot from broken store, got %+v", snap)
	}
	if code := store.ReferralCode(ctx); code != "" {
		t.Fatalf("expected empty referral code, got %q", code)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewFileStore(path)
	snap := store.Load(context.Background())
	if snap.Level != nil || snap.PriceWei != nil {
		t.Fatalf("corrupt file must read as empty, got %+v", snap)
	}
}
