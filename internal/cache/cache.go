// Package cache memoizes classification results by file content.
//
// A Key covers everything a result depends on: the file bytes, the
// extension hint, the model table digest and the confidence policy. A hit is
// therefore always safe to reuse without rescoring.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"pangloss/internal/model"
)

// schemaVersion is bumped when Entry changes shape.
const schemaVersion uint16 = 1

// Key identifies a cached classification.
type Key [32]byte

// NewKey hashes the inputs of a classification.
func NewKey(content []byte, ext string, table model.Digest, policy string) Key {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(ext))
	h.Write([]byte{0})
	h.Write(table[:])
	h.Write([]byte(policy))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// Entry is a stored classification.
type Entry struct {
	Schema uint16  `msgpack:"schema"`
	Index  int     `msgpack:"index"`
	Label  string  `msgpack:"label"`
	Best   float64 `msgpack:"best"`
	Second float64 `msgpack:"second"`
	Tokens int     `msgpack:"tokens"`
}

// Cache stores entries. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, key Key, e Entry) error
	Close() error
}

func encode(e Entry) ([]byte, error) {
	e.Schema = schemaVersion
	return msgpack.Marshal(&e)
}

// decode reports false for entries written by an older schema.
func decode(data []byte) (Entry, bool, error) {
	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Entry{}, false, err
	}
	if e.Schema != schemaVersion {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Mode selects a backend.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeMemory Mode = "memory"
	ModeDisk   Mode = "disk"
	ModeRedis  Mode = "redis"
)

// ParseMode converts a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case "":
		return ModeOff, nil
	case ModeOff, ModeMemory, ModeDisk, ModeRedis:
		return m, nil
	default:
		return ModeOff, fmt.Errorf("invalid cache mode: %q (expected: off|memory|disk|redis)", s)
	}
}

// Config selects and parameterizes a backend.
type Config struct {
	Mode     Mode
	Dir      string        // disk: defaults to $XDG_CACHE_HOME/pangloss
	Size     int           // memory: entry limit
	RedisURL string        // redis: redis://host:port/db
	TTL      time.Duration // redis: 0 keeps entries forever
}

// Clearer is implemented by backends whose entries outlive the process and
// can be dropped in one call.
type Clearer interface {
	DropAll() error
}

// Clear drops every entry of c. It reports false when the backend has no
// persistent entries to drop or does not support it.
func Clear(c Cache) (bool, error) {
	cl, ok := c.(Clearer)
	if !ok {
		return false, nil
	}
	return true, cl.DropAll()
}

// Open returns the backend for cfg. ModeOff yields a cache that never hits.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Mode {
	case ModeOff, "":
		return Nop{}, nil
	case ModeMemory:
		return NewMemory(cfg.Size)
	case ModeDisk:
		if cfg.Dir == "" {
			return OpenDefaultDisk("pangloss")
		}
		return OpenDisk(cfg.Dir)
	case ModeRedis:
		return DialRedis(ctx, cfg.RedisURL, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown cache mode %q", cfg.Mode)
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, Key) (Entry, bool, error) { return Entry{}, false, nil }
func (Nop) Put(context.Context, Key, Entry) error         { return nil }
func (Nop) Close() error                                  { return nil }
