package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-olap/olap/schema"
)

func TestKeyIsDeterministic(t *testing.T) {
	cfg := schema.Config{DefaultFactTable: "Sales", FactTables: []schema.FactTable{{FactTable: "Sales"}}}
	req := schema.Request{Measures: []string{"Total()"}, Dimensions: []string{"State()"}}

	a, err := Key(cfg, req, "v1")
	require.NoError(t, err)
	b, err := Key(cfg, req, "v1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	dup := schema.Request{Measures: []string{"Total()", "Total()"}, Dimensions: []string{"State()"}}
	c, err := Key(cfg, dup, "v1")
	require.NoError(t, err)
	assert.Equal(t, a, c, "duplicate calls normalize away")

	other := schema.Request{Measures: []string{"Total()"}, Dimensions: []string{"Product()"}}
	d, err := Key(cfg, other, "v1")
	require.NoError(t, err)
	assert.NotEqual(t, a, d)

	e, err := Key(cfg, req, "v2")
	require.NoError(t, err)
	assert.NotEqual(t, a, e, "compiler settings are part of the key")
}

func TestProgramCache(t *testing.T) {
	cache := NewProgramCache(2, time.Minute)

	_, ok := cache.Get("a")
	assert.False(t, ok)

	cache.Set("a", "A();")
	text, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A();", text)

	time.Sleep(time.Millisecond)
	cache.Set("b", "B();")
	time.Sleep(time.Millisecond)
	cache.Set("c", "C();")

	hits, misses, size := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 2, size)

	_, ok = cache.Get("a")
	assert.False(t, ok, "oldest entry is evicted")

	cache.Clear()
	hits, misses, size = cache.Stats()
	assert.Zero(t, hits+misses)
	assert.Zero(t, size)
}

func TestProgramCacheExpiry(t *testing.T) {
	cache := NewProgramCache(10, time.Millisecond)
	cache.Set("a", "A();")
	time.Sleep(5 * time.Millisecond)
	_, ok := cache.Get("a")
	assert.False(t, ok)

	var nilCache *ProgramCache
	nilCache.Set("a", "A();")
	_, ok = nilCache.Get("a")
	assert.False(t, ok)
}

func TestValueCodec(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		method byte
	}{
		{"empty", []byte{}, MethodNone},
		{"tiny", []byte("x"), MethodNone},
		{"repetitive", []byte(strings.Repeat("ConsolidatingSales(fact) :- Sales(fact);\n", 50)), MethodLZ4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := encodeValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.method, value[0])

			out, err := decodeValue(value)
			require.NoError(t, err)
			assert.Equal(t, tt.input, out)
		})
	}

	_, err := decodeValue([]byte{MethodLZ4, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f, 0x10})
	assert.ErrorIs(t, err, errCorruptSize)

	_, err = decodeValue([]byte{0x07, 0x00})
	assert.Error(t, err)
	_, err = decodeValue([]byte{MethodNone})
	assert.Error(t, err)
}

func TestBadgerStore(t *testing.T) {
	store, err := NewInMemoryBadgerStore()
	require.NoError(t, err)
	defer store.Close()

	var _ ProgramStore = store

	_, err = store.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	entry := Entry{
		Key:       "k1",
		CompileID: "id-1",
		Program:   strings.Repeat("Report(x: y) :- A(y);\n", 20),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(entry))

	got, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	require.NoError(t, store.Put(Entry{Key: "k2", Program: "B();"}))
	keys, err := store.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"k1", "k2"}, keys)

	require.NoError(t, store.Delete("k1"))
	_, err = store.Get("k1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Put(Entry{}))
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(Entry{Key: "k", Program: "P();"}))
	require.NoError(t, store.Close())

	store, err = NewBadgerStore(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "P();", got.Program)
}
