package wal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBoth(t *testing.T) map[string]func(dir string) (WriteAheadLog, error) {
	t.Helper()
	return map[string]func(dir string) (WriteAheadLog, error){
		"plain": func(dir string) (WriteAheadLog, error) {
			return Open(dir, false, nil)
		},
		"compressed": func(dir string) (WriteAheadLog, error) {
			return Open(dir, true, nil)
		},
	}
}

func TestWAL_AppendAndReplay(t *testing.T) {
	for name, open := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			w, err := open(t.TempDir())
			require.NoError(t, err)
			defer w.Close()

			for i := 1; i <= 5; i++ {
				lsn, err := w.Append(OpCommit, []byte(fmt.Sprintf("record-%d", i)))
				require.NoError(t, err)
				assert.Equal(t, uint64(i), lsn)
			}

			var got []string
			require.NoError(t, w.Replay(func(e *Entry) error {
				assert.Equal(t, OpCommit, e.OpType)
				got = append(got, string(e.Data))
				return nil
			}))
			assert.Equal(t, []string{"record-1", "record-2", "record-3", "record-4", "record-5"}, got)
		})
	}
}

func TestWAL_ReopenRecoversLSN(t *testing.T) {
	for name, open := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			w, err := open(dir)
			require.NoError(t, err)
			_, err = w.Append(OpCommit, []byte("a"))
			require.NoError(t, err)
			_, err = w.Append(OpCommit, []byte("b"))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			w, err = open(dir)
			require.NoError(t, err)
			defer w.Close()

			assert.Equal(t, uint64(2), w.GetCurrentLSN())
			lsn, err := w.Append(OpCommit, []byte("c"))
			require.NoError(t, err)
			assert.Equal(t, uint64(3), lsn)
		})
	}
}

func TestWAL_TornTailIsTruncated(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWAL(dir, nil)
	require.NoError(t, err)
	_, err = w.Append(OpCommit, []byte("complete"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Simulate a crash in the middle of writing the second entry
	f, err := os.OpenFile(filepath.Join(dir, "wal.log"), os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{2, 0, 0, 0, 0, 0, 0, 0, byte(OpCommit), 200, 0})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w, err = NewWAL(dir, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, uint64(1), w.GetCurrentLSN())

	_, err = w.Append(OpCommit, []byte("after-crash"))
	require.NoError(t, err)

	entries, err := w.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "after-crash", string(entries[1].Data))
}

func TestWAL_ChecksumMismatchStopsRecovery(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWAL(dir, nil)
	require.NoError(t, err)
	_, err = w.Append(OpCommit, []byte("first"))
	require.NoError(t, err)
	_, err = w.Append(OpCommit, []byte("second"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(dir, "wal.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	idx := bytes.LastIndex(data, []byte("second"))
	require.Greater(t, idx, 0)
	data[idx] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	w, err = NewWAL(dir, nil)
	require.NoError(t, err)
	defer w.Close()

	entries, err := w.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", string(entries[0].Data))
}

func TestWAL_Truncate(t *testing.T) {
	for name, open := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			w, err := open(t.TempDir())
			require.NoError(t, err)
			defer w.Close()

			_, err = w.Append(OpCommit, []byte("x"))
			require.NoError(t, err)
			require.NoError(t, w.Truncate())
			assert.Equal(t, uint64(0), w.GetCurrentLSN())

			entries := 0
			require.NoError(t, w.Replay(func(*Entry) error { entries++; return nil }))
			assert.Zero(t, entries)

			lsn, err := w.Append(OpCommit, []byte("y"))
			require.NoError(t, err)
			assert.Equal(t, uint64(1), lsn)
		})
	}
}

func TestWAL_ReplayHandlerErrorPropagates(t *testing.T) {
	w, err := NewWAL(t.TempDir(), nil)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(OpCommit, []byte("x"))
	require.NoError(t, err)

	err = w.Replay(func(*Entry) error { return fmt.Errorf("bad record") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LSN=1")
}

func TestCompressedWAL_Stats(t *testing.T) {
	w, err := NewCompressedWAL(t.TempDir(), nil)
	require.NoError(t, err)
	defer w.Close()

	payload := bytes.Repeat([]byte(`{"op":1,"key":"character","value":"Cyberleader"}`), 50)
	_, err = w.Append(OpCommit, payload)
	require.NoError(t, err)

	stats := w.GetStats()
	assert.Equal(t, uint64(1), stats.TotalWrites)
	assert.Equal(t, uint64(len(payload)), stats.BytesUncompressed)
	assert.Less(t, stats.BytesCompressed, stats.BytesUncompressed)
	assert.Less(t, stats.CompressionRatio, 1.0)

	entries, err := w.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, payload, entries[0].Data)
}

func TestWAL_AppendAfterClose(t *testing.T) {
	w, err := NewWAL(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Append(OpCommit, []byte("late"))
	assert.Error(t, err)
	assert.NoError(t, w.Close(), "Close should be idempotent")
}
