package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/rating"
	"github.com/redis/go-redis/v9"
)

func sampleSnapshot() model.Snapshot {
	snap := model.NewSnapshot([]string{"Boring is Good", "Simplicity Wins", "No Magic"})
	snap.Items[0].Rating = 1531.25
	snap.Items[0].Uncertainty = 315.875
	snap.Items[0].MatchCount = 2
	snap.Items[0].Opponents = []string{"Simplicity Wins", "No Magic"}
	snap.Items[0].LegacyScore = 3
	snap.Items[1].Opponents = []string{"Boring is Good"}
	snap.Items[2].Opponents = []string{"Boring is Good"}
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	snap.History = []model.Judgment{
		{ID: "j-1", Winner: "Boring is Good", Loser: "Simplicity Wins", Timestamp: ts, LatencyMS: 1200},
		{ID: "j-2", Winner: "Boring is Good", Loser: "No Magic", Timestamp: ts.Add(time.Minute), LatencyMS: 11000},
	}
	snap.Conflicts = []model.Conflict{{Pair: [2]string{"Boring is Good", "No Magic"}, Winner: "Boring is Good", LatencyMS: 11000}}
	return snap
}

// exerciseStore runs the Store contract against a backend.
func exerciseStore(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	s := New(b, WithStateKey("state"), WithWelcomeKey("welcome"))
	defer s.Close()

	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	want := sampleSnapshot()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	want.Items[1].Rating = 1400
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.Load(ctx)
	if got.Items[1].Rating != 1400 {
		t.Errorf("last write should win, got rating %v", got.Items[1].Rating)
	}

	seen, err := s.WelcomeSeen(ctx)
	if err != nil || seen {
		t.Fatalf("welcome should start unseen, got %v %v", seen, err)
	}
	if err := s.MarkWelcomeSeen(ctx); err != nil {
		t.Fatalf("mark welcome: %v", err)
	}
	if seen, _ := s.WelcomeSeen(ctx); !seen {
		t.Error("welcome should be seen after marking")
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after reset, got %v", err)
	}
	if seen, _ := s.WelcomeSeen(ctx); seen {
		t.Error("reset should clear the welcome flag")
	}
	if err := s.Reset(ctx); err != nil {
		t.Errorf("reset of an empty store should succeed: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryBackend())
}

func TestFileStore(t *testing.T) {
	b, err := OpenFile(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, b)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "pairrank.db")
	b, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, b)

	// Reopening runs migrations again against the existing schema.
	again, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if err := again.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set after reopen: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping integration test")
	}

	b := NewRedisBackend(client)
	suffix := strconv.FormatInt(time.Now().UnixNano(), 10)
	s := New(b, WithStateKey("pairrank-test-state-"+suffix), WithWelcomeKey("pairrank-test-welcome-"+suffix))
	defer s.Close()

	bg := context.Background()
	want := sampleSnapshot()
	if err := s.Save(bg, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(bg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if err := s.Reset(bg); err != nil {
		t.Fatalf("reset: %v", err)
	}
}

func TestLoadMigratesMissingFields(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	legacy := `{"items":[{"name":"a","match_count":1},{"name":"b","rating":1490,"uncertainty":300,"opponents":["a"]}],"history":[{"id":"1","winner":"b","loser":"a"}]}`
	if err := b.Set(ctx, DefaultStateKey, []byte(legacy)); err != nil {
		t.Fatal(err)
	}

	snap, err := New(b).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	a := snap.Items[0]
	if a.Rating != model.DefaultRating || a.Uncertainty != model.DefaultUncertainty {
		t.Errorf("defaults not applied: %+v", a)
	}
	if a.Opponents == nil || len(a.Opponents) != 0 {
		t.Errorf("opponents should be an empty list, got %#v", a.Opponents)
	}
	if a.MatchCount != 1 {
		t.Errorf("match count lost: %d", a.MatchCount)
	}
	if snap.Items[1].Rating != 1490 || snap.Items[1].Uncertainty != 300 {
		t.Errorf("present fields must be kept: %+v", snap.Items[1])
	}
	if snap.Conflicts == nil {
		t.Error("conflicts should default to an empty list")
	}
}

func TestLoadRaisesUncertaintyToFloor(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	doc := `{"items":[{"name":"a","rating":1500,"uncertainty":20,"opponents":[]},{"name":"b","rating":1500,"uncertainty":80,"opponents":[]}],"history":[],"conflicts":[]}`
	if err := b.Set(ctx, DefaultStateKey, []byte(doc)); err != nil {
		t.Fatal(err)
	}

	snap, err := New(b, WithMinUncertainty(60)).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := snap.Items[0].Uncertainty; got != 60 {
		t.Errorf("uncertainty below the floor should be raised to 60, got %v", got)
	}
	if got := snap.Items[1].Uncertainty; got != 80 {
		t.Errorf("uncertainty above the floor must be kept, got %v", got)
	}

	// A comparison on the loaded items never pushes uncertainty back up.
	a, bi := snap.Items[0], snap.Items[1]
	rating.New(rating.WithMinUncertainty(60)).Apply(&a, &bi, false, false)
	if a.Uncertainty > snap.Items[0].Uncertainty || bi.Uncertainty > snap.Items[1].Uncertainty {
		t.Errorf("uncertainty increased: %v -> %v, %v -> %v",
			snap.Items[0].Uncertainty, a.Uncertainty, snap.Items[1].Uncertainty, bi.Uncertainty)
	}

	_, migrated, err := decodeSnapshot([]byte(doc), 60)
	if err != nil {
		t.Fatal(err)
	}
	if migrated != 1 {
		t.Errorf("expected 1 migrated item, got %d", migrated)
	}
}

func TestDecodeIsNoOpOnCompleteRecords(t *testing.T) {
	want := sampleSnapshot()
	data, err := encodeSnapshot(want)
	if err != nil {
		t.Fatal(err)
	}
	got, migrated, err := decodeSnapshot(data, rating.DefaultMinUncertainty)
	if err != nil {
		t.Fatal(err)
	}
	if migrated != 0 {
		t.Errorf("expected no migrated items, got %d", migrated)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsCorruptState(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"not json":         `{"items":`,
		"no items":         `{"items":[]}`,
		"unnamed item":     `{"items":[{"name":""}]}`,
		"duplicate item":   `{"items":[{"name":"a"},{"name":"a"}]}`,
		"unknown in judge": `{"items":[{"name":"a"}],"history":[{"id":"1","winner":"a","loser":"z"}]}`,
		"negative sigma":   `{"items":[{"name":"a","uncertainty":-5}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			b := NewMemoryBackend()
			_ = b.Set(ctx, DefaultStateKey, []byte(doc))
			if _, err := New(b).Load(ctx); !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBackend(ctx, BackendConfig{Kind: KindMemory})
	if err != nil || b.Name() != "memory" {
		t.Fatalf("memory backend: %v %v", b, err)
	}
	f, err := OpenBackend(ctx, BackendConfig{Kind: KindFile, FileDir: t.TempDir()})
	if err != nil || f.Name() != "file" {
		t.Fatalf("file backend: %v", err)
	}
	if _, err := OpenBackend(ctx, BackendConfig{Kind: "etcd"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
	if _, err := OpenBackend(ctx, BackendConfig{Kind: KindFile}); err == nil {
		t.Error("file backend without a directory should fail")
	}
}

func TestClosedMemoryBackend(t *testing.T) {
	b := NewMemoryBackend()
	_ = b.Close()
	if _, err := b.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
