package memstore

import (
	"context"
	"testing"

	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/stretchr/testify/require"
)

func fixedClock(ticks ...int64) func() int64 {
	i := -1
	return func() int64 {
		i++
		if i < len(ticks) {
			return ticks[i]
		}
		return ticks[len(ticks)-1]
	}
}

func testRegistry() *schema.Registry {
	r := schema.NewRegistry()
	schema.RegisterBuiltins(r)
	return r
}

func TestReceiveThenRead(t *testing.T) {
	s := New(testRegistry(), fixedClock(100))
	ctx := context.Background()

	res := s.Receive(ctx, "mutable://open/a", "hello")
	require.True(t, res.Accepted)

	got := s.Read(ctx, "mutable://open/a")
	require.True(t, got.Success)
	require.Equal(t, "hello", got.Record.Data)
	require.EqualValues(t, 100, got.Record.Ts)
}

func TestReceiveRejectsUnknownProgram(t *testing.T) {
	s := New(testRegistry(), fixedClock(1))
	res := s.Receive(context.Background(), "carrier-pigeon://open/a", "hello")
	require.False(t, res.Accepted)
	require.Error(t, res.Err)
}

func TestReceiveRejectsMalformedURI(t *testing.T) {
	s := New(testRegistry(), fixedClock(1))
	res := s.Receive(context.Background(), "not-a-uri", "hello")
	require.False(t, res.Accepted)
	require.Error(t, res.Err)
}

func TestReceiveRecursesIntoCompoundOutputs(t *testing.T) {
	s := New(testRegistry(), fixedClock(1, 2, 3))
	compound := map[string]interface{}{
		"outputs": []interface{}{
			[]interface{}{"mutable://open/child-a", "a"},
			[]interface{}{"mutable://open/child-b", "b"},
		},
	}
	res := s.Receive(context.Background(), "mutable://open/parent", compound)
	require.True(t, res.Accepted)

	a := s.Read(context.Background(), "mutable://open/child-a")
	require.True(t, a.Success)
	b := s.Read(context.Background(), "mutable://open/child-b")
	require.True(t, b.Success)
}

func TestReceiveAbortsOnFirstFailingSubOutput(t *testing.T) {
	s := New(testRegistry(), fixedClock(1, 2))
	compound := map[string]interface{}{
		"outputs": []interface{}{
			[]interface{}{"mutable://open/child-a", "a"},
			[]interface{}{"carrier-pigeon://open/child-b", "b"},
		},
	}
	res := s.Receive(context.Background(), "mutable://open/parent", compound)
	require.False(t, res.Accepted)

	a := s.Read(context.Background(), "mutable://open/child-a")
	require.True(t, a.Success, "earlier sub-receives are not rolled back")
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	s := New(testRegistry(), fixedClock(1))
	got := s.Read(context.Background(), "mutable://open/missing")
	require.False(t, got.Success)
	require.Error(t, got.Err)
}

func TestReadMultiRejectsOverLimit(t *testing.T) {
	s := New(testRegistry(), fixedClock(1))
	uris := make([]string, store.MaxReadMultiURIs+1)
	for i := range uris {
		uris[i] = "mutable://open/x"
	}
	_, err := s.ReadMulti(context.Background(), uris)
	require.Error(t, err)
}

func TestListReturnsFileAndDirectoryEntries(t *testing.T) {
	s := New(testRegistry(), fixedClock(1, 2, 3))
	ctx := context.Background()
	s.Receive(ctx, "mutable://open/abc", "account-record")
	s.Receive(ctx, "mutable://open/abc/profile", "profile-record")
	s.Receive(ctx, "mutable://open/abc/settings", "settings-record")

	res := s.List(ctx, "mutable://open/abc", store.ListOptions{SortBy: store.SortByName})
	require.Len(t, res.Data, 3)
	require.Equal(t, 3, res.Pagination.Total)

	byURI := map[string]store.EntryType{}
	for _, e := range res.Data {
		byURI[e.URI] = e.Type
	}
	require.Equal(t, store.EntryFile, byURI["mutable://open/abc"])
	require.Equal(t, store.EntryDirectory, byURI["mutable://open/abc/profile"])
	require.Equal(t, store.EntryDirectory, byURI["mutable://open/abc/settings"])
}

func TestListPaginates(t *testing.T) {
	s := New(testRegistry(), fixedClock(1, 2, 3, 4))
	ctx := context.Background()
	s.Receive(ctx, "mutable://open/abc/a", 1)
	s.Receive(ctx, "mutable://open/abc/b", 2)
	s.Receive(ctx, "mutable://open/abc/c", 3)

	page1 := s.List(ctx, "mutable://open/abc", store.ListOptions{Page: 1, Limit: 2, LimitSet: true, SortBy: store.SortByName})
	require.Len(t, page1.Data, 2)
	require.Equal(t, 3, page1.Pagination.Total)

	page2 := s.List(ctx, "mutable://open/abc", store.ListOptions{Page: 2, Limit: 2, LimitSet: true, SortBy: store.SortByName})
	require.Len(t, page2.Data, 1)
}

func TestListExplicitZeroLimitYieldsEmptyPage(t *testing.T) {
	s := New(testRegistry(), fixedClock(1, 2, 3))
	ctx := context.Background()
	s.Receive(ctx, "mutable://open/abc/a", 1)
	s.Receive(ctx, "mutable://open/abc/b", 2)

	res := s.List(ctx, "mutable://open/abc", store.ListOptions{Page: 1, Limit: 0, LimitSet: true, SortBy: store.SortByName})
	require.Empty(t, res.Data)
	require.Equal(t, 2, res.Pagination.Total)
	require.Equal(t, 0, res.Pagination.Limit)
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := New(testRegistry(), fixedClock(1))
	ctx := context.Background()
	s.Receive(ctx, "mutable://open/a", "hello")

	res := s.Delete(ctx, "mutable://open/a")
	require.True(t, res.Success)

	got := s.Read(ctx, "mutable://open/a")
	require.False(t, got.Success)
}

func TestHealthReportsRecordCount(t *testing.T) {
	s := New(testRegistry(), fixedClock(1, 2))
	ctx := context.Background()
	s.Receive(ctx, "mutable://open/a", "hello")
	s.Receive(ctx, "mutable://open/b", "world")

	h := s.Health(ctx)
	require.Equal(t, "ok", h.Status)
	require.Equal(t, 2, h.Details["records"])
}

func TestGetSchemaReturnsRegisteredProgramKeys(t *testing.T) {
	s := New(testRegistry(), fixedClock(1))
	keys := s.GetSchema()
	require.Contains(t, keys, "mutable://open")
	require.Contains(t, keys, "blob://open")
}
