package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xsamyy/fibwatch/internal/alert"
	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

func sampleSnapshot() watchlist.Snapshot {
	added := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	return watchlist.Snapshot{
		Watchlist: []string{"AAAtoken", "BBBtoken", "CCCtoken"},
		States: map[string]alert.TokenState{
			"AAAtoken": {AlertsSent: 1, WasInBand: true, AddedAt: added},
			"BBBtoken": {
				AlertsSent: 2, Stopped: true, AddedAt: added,
				Range: &alert.Range{Low: decimal.RequireFromString("0.00001"), High: decimal.RequireFromString("0.00004")},
				Last: &alert.Observation{
					Symbol:    "BBB",
					PairURL:   "https://dexscreener.com/solana/bbb",
					PriceUSD:  decimal.RequireFromString("0.0000176"),
					Level75:   decimal.RequireFromString("0.0000175"),
					BandLow:   decimal.RequireFromString("0.00001715"),
					BandHigh:  decimal.RequireFromString("0.00001785"),
					Defined:   true,
					CheckedAt: added.Add(time.Hour),
				},
			},
			"CCCtoken": {AddedAt: added},
		},
	}
}

func assertSameSnapshot(t *testing.T, want, got watchlist.Snapshot) {
	t.Helper()
	require.Equal(t, want.Watchlist, got.Watchlist)
	require.Len(t, got.States, len(want.States))
	for addr, w := range want.States {
		g, ok := got.States[addr]
		require.True(t, ok, addr)
		assert.Equal(t, w.AlertsSent, g.AlertsSent, addr)
		assert.Equal(t, w.WasInBand, g.WasInBand, addr)
		assert.Equal(t, w.Stopped, g.Stopped, addr)
		assert.True(t, w.AddedAt.Equal(g.AddedAt), addr)

		if w.Range == nil {
			assert.Nil(t, g.Range, addr)
		} else {
			require.NotNil(t, g.Range, addr)
			assert.True(t, w.Range.Low.Equal(g.Range.Low), addr)
			assert.True(t, w.Range.High.Equal(g.Range.High), addr)
		}
		if w.Last == nil {
			assert.Nil(t, g.Last, addr)
		} else {
			require.NotNil(t, g.Last, addr)
			assert.Equal(t, w.Last.Symbol, g.Last.Symbol)
			assert.Equal(t, w.Last.PairURL, g.Last.PairURL)
			assert.True(t, w.Last.PriceUSD.Equal(g.Last.PriceUSD))
			assert.True(t, w.Last.Level75.Equal(g.Last.Level75))
			assert.True(t, w.Last.BandLow.Equal(g.Last.BandLow))
			assert.True(t, w.Last.BandHigh.Equal(g.Last.BandHigh))
			assert.True(t, w.Last.CheckedAt.Equal(g.Last.CheckedAt))
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"state.db", "state.bolt", "state.json", "state.yaml", "state.yml"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), name)

			p, err := Open(path)
			require.NoError(t, err)
			assert.Equal(t, path, p.Path())

			want := sampleSnapshot()
			require.NoError(t, p.Save(ctx, want))
			require.NoError(t, p.Close())

			// Reopen to prove the data is on disk.
			p, err = Open(path)
			require.NoError(t, err)
			defer p.Close()

			got, err := p.Load(ctx)
			require.NoError(t, err)
			assertSameSnapshot(t, want, got)
		})
	}
}

func TestSaveReplacesPreviousContents(t *testing.T) {
	for _, name := range []string{"state.db", "state.json"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p, err := Open(filepath.Join(t.TempDir(), name))
			require.NoError(t, err)
			defer p.Close()

			require.NoError(t, p.Save(ctx, sampleSnapshot()))
			smaller := watchlist.Snapshot{
				Watchlist: []string{"CCCtoken"},
				States:    map[string]alert.TokenState{"CCCtoken": {AlertsSent: 1}},
			}
			require.NoError(t, p.Save(ctx, smaller))

			got, err := p.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"CCCtoken"}, got.Watchlist)
			assert.Equal(t, 1, got.States["CCCtoken"].AlertsSent)
		})
	}
}

func TestFileLoadMissingIsEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "absent.json"), FormatJSON)
	snap, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Watchlist)
	assert.NotNil(t, snap.States)
}

func TestFileLoadCorruptIsPersistenceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFile(path, FormatJSON).Load(context.Background())
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "load", pe.Op)
	assert.Equal(t, path, pe.Path)
}

func TestFileSaveUnwritableDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "state.json")
	err := NewFile(path, FormatJSON).Save(context.Background(), sampleSnapshot())
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "save", pe.Op)
}

func TestOpen(t *testing.T) {
	p, err := Open("  ")
	require.NoError(t, err)
	assert.IsType(t, Memory{}, p)
	snap, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Watchlist)

	_, err = Open("state.txt")
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "open", pe.Op)
}

func TestRestoreFromPersistedSnapshot(t *testing.T) {
	ctx := context.Background()
	p, err := Open(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)

	src := watchlist.New()
	src.Add("AAAtoken")
	src.Apply("AAAtoken", func(st *alert.TokenState) { st.AlertsSent, st.WasInBand = 1, true })
	require.NoError(t, p.Save(ctx, src.Export()))

	snap, err := p.Load(ctx)
	require.NoError(t, err)
	dst := watchlist.New()
	dst.Restore(snap)

	st, ok := dst.State("AAAtoken")
	require.True(t, ok)
	assert.Equal(t, 1, st.AlertsSent)
	assert.True(t, st.WasInBand)
	assert.False(t, st.Stopped)
}
