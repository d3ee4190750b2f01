package connector

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanOnly struct {
	closed *atomic.Int32
}

func (c *scanOnly) Kind() Kind { return "scan" }
func (c *scanOnly) Close() error {
	if c.closed != nil {
		c.closed.Add(1)
	}
	return nil
}

type appendOnly struct{ scanOnly }

func (c *appendOnly) Kind() Kind { return "append" }
func (c *appendOnly) Insert(ctx context.Context, req *InsertRequest) (int64, error) {
	return int64(len(req.Rows)), nil
}

func TestCapabilities(t *testing.T) {
	caps := NewCapabilities(FamilyInsert, FamilyDelete)
	assert.True(t, caps.Supports(FamilyInsert))
	assert.False(t, caps.Supports(FamilyUpdate))
	assert.True(t, caps.Supports(FamilyDelete))
	assert.Equal(t, []Family{FamilyInsert, FamilyDelete}, caps.Families())
	assert.Empty(t, ReadOnlyCapabilities.Families())
}

func TestFamilyNames(t *testing.T) {
	assert.Equal(t, "Insert into", FamilyInsert.String())
	assert.Equal(t, "Update", FamilyUpdate.String())
	assert.Equal(t, "Delete", FamilyDelete.String())
	assert.Equal(t, "delete", FamilyDelete.Label())
}

func TestCapabilityUnimplementedError(t *testing.T) {
	tests := []struct {
		family Family
		want   string
	}{
		{FamilyInsert, "Insert into not implemented for this table"},
		{FamilyUpdate, "Update not implemented for this table"},
		{FamilyDelete, "Delete not implemented for this table"},
	}

	for _, tt := range tests {
		err := error(&CapabilityUnimplementedError{Family: tt.family, Kind: "debug", Table: "debug_db.public.never_ending"})
		assert.Contains(t, err.Error(), tt.want)
		assert.Contains(t, err.Error(), "debug_db.public.never_ending")
		assert.True(t, errors.Is(err, ErrCapabilityUnimplemented))
	}
}

func TestOptionsGet(t *testing.T) {
	opts := Options{"path": "/tmp/a.db", "empty": ""}
	assert.Equal(t, "/tmp/a.db", opts.Get("PATH", "x"))
	assert.Equal(t, "x", opts.Get("empty", "x"))
	assert.Equal(t, "x", opts.Get("missing", "x"))
	assert.Equal(t, Kind("sqlite"), NormalizeKind(" SQLite "))
}

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register("scan", ReadOnlyCapabilities, func(Options) (Connector, error) { return &scanOnly{}, nil })
	r.Register("append", NewCapabilities(FamilyInsert), func(Options) (Connector, error) { return &appendOnly{}, nil })
	return r
}

func TestRegistry_Supports(t *testing.T) {
	r := newTestRegistry()

	assert.False(t, r.Supports("scan", FamilyInsert))
	assert.True(t, r.Supports("append", FamilyInsert))
	assert.False(t, r.Supports("append", FamilyUpdate))

	// Unknown kinds are not capable and not an error
	assert.False(t, r.Supports("nope", FamilyInsert))
	assert.False(t, r.Known("nope"))
	assert.Equal(t, []Kind{"append", "scan"}, r.Kinds())
}

func TestRegistry_Open(t *testing.T) {
	r := newTestRegistry()

	conn, err := r.Open("append", nil)
	require.NoError(t, err)
	_, ok := conn.(Inserter)
	assert.True(t, ok)

	_, err = r.Open("nope", nil)
	var unknown *UnknownKindError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, Kind("nope"), unknown.Kind)
	assert.True(t, errors.Is(err, ErrUnknownKind))

	// A kind declaring a family its instances lack is rejected and closed
	var closed atomic.Int32
	r.Register("liar", NewCapabilities(FamilyUpdate), func(Options) (Connector, error) {
		return &scanOnly{closed: &closed}, nil
	})
	_, err = r.Open("liar", nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), closed.Load())

	r.Register("broken", ReadOnlyCapabilities, func(Options) (Connector, error) {
		return nil, errors.New("boom")
	})
	_, err = r.Open("broken", nil)
	assert.ErrorContains(t, err, "boom")
}

func TestRegistry_TableListing(t *testing.T) {
	r := NewRegistry()
	r.Register("scan", ReadOnlyCapabilities, func(Options) (Connector, error) { return &scanOnly{}, nil })

	assert.False(t, r.ListsTables("scan"))
	assert.False(t, r.ListsTables("nope"))
	assert.True(t, (ReadOnlyCapabilities | TableListing).ListsTables())
	assert.Empty(t, (ReadOnlyCapabilities | TableListing).Families())

	// Declaring table listing without implementing TableLister is rejected
	var closed atomic.Int32
	r.Register("mute", ReadOnlyCapabilities|TableListing, func(Options) (Connector, error) {
		return &scanOnly{closed: &closed}, nil
	})
	assert.True(t, r.ListsTables("mute"))
	_, err := r.Open("mute", nil)
	assert.ErrorContains(t, err, "table listing")
	assert.Equal(t, int32(1), closed.Load())
}

func TestPool_ReusesAndEvicts(t *testing.T) {
	var opened, closed atomic.Int32
	r := NewRegistry()
	r.Register("scan", ReadOnlyCapabilities, func(Options) (Connector, error) {
		opened.Add(1)
		return &scanOnly{closed: &closed}, nil
	})

	pool, err := NewPool(r, 2)
	require.NoError(t, err)
	assert.Same(t, r, pool.Registry())

	a1, release, err := pool.Acquire("a", "scan", nil)
	require.NoError(t, err)
	release()
	a2, release, err := pool.Acquire("a", "scan", nil)
	require.NoError(t, err)
	release()
	assert.Same(t, a1, a2)
	assert.Equal(t, int32(1), opened.Load())

	_, release, err = pool.Acquire("b", "scan", nil)
	require.NoError(t, err)
	release()
	_, release, err = pool.Acquire("c", "scan", nil)
	require.NoError(t, err)
	release()
	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, int32(1), closed.Load())

	pool.Remove("c")
	assert.Equal(t, int32(2), closed.Load())
	pool.Remove("c")
	assert.Equal(t, int32(2), closed.Load())

	pool.Close()
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, int32(3), closed.Load())

	_, _, err = pool.Acquire("x", "unknown", nil)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestPool_EvictedConnectorClosesAfterRelease(t *testing.T) {
	var opened, closed atomic.Int32
	r := NewRegistry()
	r.Register("scan", ReadOnlyCapabilities, func(Options) (Connector, error) {
		opened.Add(1)
		return &scanOnly{closed: &closed}, nil
	})

	pool, err := NewPool(r, 1)
	require.NoError(t, err)
	defer pool.Close()

	a, releaseA, err := pool.Acquire("a", "scan", nil)
	require.NoError(t, err)

	// Opening b evicts a while a is still leased
	_, releaseB, err := pool.Acquire("b", "scan", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Len())
	assert.Equal(t, int32(0), closed.Load())

	// A new lease on a opens a fresh instance instead of reusing the evicted one
	a2, releaseA2, err := pool.Acquire("a", "scan", nil)
	require.NoError(t, err)
	assert.NotSame(t, a, a2)
	assert.Equal(t, int32(3), opened.Load())

	// b was evicted by a2 but is still leased
	assert.Equal(t, int32(0), closed.Load())

	releaseA()
	assert.Equal(t, int32(1), closed.Load())
	releaseB()
	assert.Equal(t, int32(2), closed.Load())

	// a2 is still cached, so releasing it keeps it open
	releaseA2()
	assert.Equal(t, int32(2), closed.Load())
}

// guarded fails writes issued after Close.
type guarded struct {
	closed atomic.Bool
	writes *atomic.Int32
}

func (c *guarded) Kind() Kind { return "guarded" }
func (c *guarded) Close() error {
	c.closed.Store(true)
	return nil
}
func (c *guarded) Insert(ctx context.Context, req *InsertRequest) (int64, error) {
	if c.closed.Load() {
		return 0, errors.New("connector is closed")
	}
	c.writes.Add(1)
	runtime.Gosched()
	if c.closed.Load() {
		return 0, errors.New("connector closed mid-write")
	}
	return int64(len(req.Rows)), nil
}

func TestPool_ConcurrentWritesAcrossEvictions(t *testing.T) {
	var writes atomic.Int32
	r := NewRegistry()
	r.Register("guarded", NewCapabilities(FamilyInsert), func(Options) (Connector, error) {
		return &guarded{writes: &writes}, nil
	})

	pool, err := NewPool(r, 2)
	require.NoError(t, err)
	defer pool.Close()

	const workers = 64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("table:t%d", i%8)
			conn, release, err := pool.Acquire(key, "guarded", nil)
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			_, err = conn.(Inserter).Insert(context.Background(), &InsertRequest{Rows: [][]interface{}{{i}}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(workers), writes.Load())
	assert.LessOrEqual(t, pool.Len(), 2)
}

func TestPool_ConcurrentAcquireOpensOnce(t *testing.T) {
	var opened atomic.Int32
	r := NewRegistry()
	r.Register("scan", ReadOnlyCapabilities, func(Options) (Connector, error) {
		opened.Add(1)
		return &scanOnly{}, nil
	})

	pool, err := NewPool(r, 8)
	require.NoError(t, err)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := pool.Acquire("shared", "scan", nil)
			if assert.NoError(t, err) {
				release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), opened.Load())
}
