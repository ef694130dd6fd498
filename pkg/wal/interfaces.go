package wal

// WALAppender is the interface for appending entries to a WAL.
type WALAppender interface {
	// Append appends a new entry and returns its LSN.
	Append(opType OpType, data []byte) (uint64, error)
}

// WALReader is the interface for reading entries from a WAL.
type WALReader interface {
	// Replay calls handler for every valid entry, in LSN order.
	Replay(handler func(*Entry) error) error
}

// WALManager is the interface for WAL lifecycle management.
type WALManager interface {
	// Truncate removes all entries, typically after a snapshot.
	Truncate() error
	Close() error
	GetCurrentLSN() uint64
}

// WriteAheadLog is the complete interface for a Write-Ahead Log implementation.
type WriteAheadLog interface {
	WALAppender
	WALReader
	WALManager
}

var _ WriteAheadLog = (*WAL)(nil)
var _ WriteAheadLog = (*CompressedWAL)(nil)
