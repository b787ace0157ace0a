package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "tickers.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})
	return st
}

func TestAddTicker_InsertOrIgnore(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.AddTicker("alice", "SOL"))
	require.NoError(t, st.AddTicker("alice", "SOL"))
	require.NoError(t, st.AddTicker("alice", "ADA"))

	got, err := st.ListTickers("alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SOL", "ADA"}, got)
}

func TestListTickers_SecretsAreIndependent(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.AddTicker("alice", "SOL"))
	require.NoError(t, st.AddTicker("bob", "DOT"))

	alice, err := st.ListTickers("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"SOL"}, alice)

	bob, err := st.ListTickers("bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"DOT"}, bob)

	nobody, err := st.ListTickers("nobody")
	require.NoError(t, err)
	assert.Empty(t, nobody)
}

func TestAddTicker_ConcurrentIdenticalWrites(t *testing.T) {
	st := openTestStore(t)

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- st.AddTicker("alice", "SOL")
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}

	got, err := st.ListTickers("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"SOL"}, got)
}

func TestDownloads_InsertAndQuery(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.InsertDownload(DownloadRecord{
		TS: 100, Endpoint: "/api/data/download", Tickers: "BTC,ETH", RowCount: 2, Status: "ok",
	}))
	require.NoError(t, st.InsertDownload(DownloadRecord{
		TS: 200, Endpoint: "/api/v2/data/download", Tickers: "SOL", RowCount: 0, Status: "error", Error: "boom",
	}))

	items, err := st.QueryDownloads(10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Newest first.
	assert.Equal(t, "/api/v2/data/download", items[0].Endpoint)
	assert.Equal(t, "boom", items[0].Error)
	assert.Equal(t, "/api/data/download", items[1].Endpoint)
	assert.NotEmpty(t, items[0].CreatedAt)

	limited, err := st.QueryDownloads(1, 0)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	offset, err := st.QueryDownloads(1, 1)
	require.NoError(t, err)
	require.Len(t, offset, 1)
	assert.Equal(t, "/api/data/download", offset[0].Endpoint)
}

func TestStore_NilGuards(t *testing.T) {
	var st *Store
	require.NoError(t, st.Close())

	assert.Error(t, st.AddTicker("a", "b"))
	_, err := st.ListTickers("a")
	assert.Error(t, err)
	_, err = st.QueryDownloads(10, 0)
	assert.Error(t, err)
}
