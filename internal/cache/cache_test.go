package cache

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"pangloss/internal/model"
)

func TestKeyCoversInputs(t *testing.T) {
	var digest model.Digest
	base := NewKey([]byte("int main"), ".c", digest, "literal")
	if base != NewKey([]byte("int main"), ".c", digest, "literal") {
		t.Fatalf("key must be deterministic")
	}
	other := digest
	other[0] = 1
	variants := map[string]Key{
		"content": NewKey([]byte("int main;"), ".c", digest, "literal"),
		"ext":     NewKey([]byte("int main"), ".h", digest, "literal"),
		"table":   NewKey([]byte("int main"), ".c", other, "literal"),
		"policy":  NewKey([]byte("int main"), ".c", digest, "guarded"),
		"shift":   NewKey([]byte("int main."), "c", digest, "literal"),
	}
	for name, k := range variants {
		if k == base {
			t.Fatalf("changing %s must change the key", name)
		}
	}
}

func sampleEntry() Entry {
	return Entry{Index: 7, Label: "Python", Best: -120.5, Second: math.Inf(-1), Tokens: 42}
}

func checkBackend(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	key := NewKey([]byte("print 1"), ".py", model.Digest{}, "literal")

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Put(ctx, key, sampleEntry()); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	want := sampleEntry()
	want.Schema = schemaVersion
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestMemory(t *testing.T) {
	m, err := NewMemory(2)
	if err != nil {
		t.Fatalf("NewMemory returned error: %v", err)
	}
	checkBackend(t, m)

	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		if err := m.Put(ctx, NewKey([]byte(s), "", model.Digest{}, ""), Entry{}); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
	}
	if m.Len() != 2 {
		t.Fatalf("expected eviction down to 2 entries, got %d", m.Len())
	}
}

func TestDisk(t *testing.T) {
	d, err := OpenDisk(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("OpenDisk returned error: %v", err)
	}
	checkBackend(t, d)

	if err := d.DropAll(); err != nil {
		t.Fatalf("DropAll returned error: %v", err)
	}
	key := NewKey([]byte("print 1"), ".py", model.Digest{}, "literal")
	if _, ok, _ := d.Get(context.Background(), key); ok {
		t.Fatalf("expected miss after DropAll")
	}
	if err := d.DropAll(); err != nil {
		t.Fatalf("DropAll on empty cache returned error: %v", err)
	}
}

func TestClear(t *testing.T) {
	d, err := OpenDisk(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDisk returned error: %v", err)
	}
	ctx := context.Background()
	key := NewKey([]byte("puts 1"), ".rb", model.Digest{}, "literal")
	if err := d.Put(ctx, key, sampleEntry()); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	dropped, err := Clear(d)
	if err != nil || !dropped {
		t.Fatalf("Clear(disk) = %v, %v", dropped, err)
	}
	if _, ok, _ := d.Get(ctx, key); ok {
		t.Fatalf("expected miss after Clear")
	}

	m, err := NewMemory(4)
	if err != nil {
		t.Fatalf("NewMemory returned error: %v", err)
	}
	for _, c := range []Cache{Nop{}, m} {
		if dropped, err := Clear(c); err != nil || dropped {
			t.Fatalf("Clear(%T) = %v, %v; want false, nil", c, dropped, err)
		}
	}
}

func TestDiskIgnoresOldSchema(t *testing.T) {
	d, err := OpenDisk(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDisk returned error: %v", err)
	}
	key := NewKey([]byte("x"), "", model.Digest{}, "")
	old := sampleEntry()
	old.Schema = schemaVersion + 1
	data, err := msgpack.Marshal(&old)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p := d.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok, err := d.Get(context.Background(), key); ok || err != nil {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}

	if err := os.WriteFile(p, []byte{0xc1}, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := d.Get(context.Background(), key); err == nil {
		t.Fatalf("expected decode error for corrupt entry")
	}
}

func TestOpenDefaultDiskUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	c, err := Open(context.Background(), Config{Mode: ModeDisk})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if got := c.(*Disk).Dir(); got != filepath.Join(dir, "pangloss") {
		t.Fatalf("unexpected cache dir %q", got)
	}
}

func TestOpenModes(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, Config{Mode: ModeOff})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	checkNop(t, c)

	if _, err := Open(ctx, Config{Mode: ModeRedis}); err == nil {
		t.Fatalf("expected error for redis without url")
	}
	if _, err := Open(ctx, Config{Mode: ModeRedis, RedisURL: "http://nope"}); err == nil {
		t.Fatalf("expected error for malformed redis url")
	}
	if _, err := ParseMode("s3"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if m, err := ParseMode("Memory"); err != nil || m != ModeMemory {
		t.Fatalf("expected memory mode, got %q (%v)", m, err)
	}
}

func checkNop(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	key := Key{}
	if err := c.Put(ctx, key, sampleEntry()); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatalf("nop cache must never hit")
	}
}

// TestRedis runs against a live server when PANGLOSS_TEST_REDIS_URL is set.
func TestRedis(t *testing.T) {
	url := os.Getenv("PANGLOSS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PANGLOSS_TEST_REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := DialRedis(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("DialRedis returned error: %v", err)
	}
	defer r.Close()
	key := NewKey([]byte(t.Name()+time.Now().String()), ".py", model.Digest{}, "literal")
	if err := r.Put(ctx, key, sampleEntry()); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	got, ok, err := r.Get(ctx, key)
	if err != nil || !ok || got.Label != "Python" || !math.IsInf(got.Second, -1) {
		t.Fatalf("unexpected round trip: %+v ok=%v err=%v", got, ok, err)
	}
}
