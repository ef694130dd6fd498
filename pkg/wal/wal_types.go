package wal

// OpType represents the type of operation in the WAL
type OpType uint8

const (
	// OpCommit carries one committed transaction
	OpCommit OpType = iota + 1
)

// Entry represents a single WAL entry
type Entry struct {
	LSN       uint64 // Log Sequence Number
	OpType    OpType
	Data      []byte // payload as appended (decompressed on read)
	Checksum  uint32 // CRC32 of the payload as stored on disk
	Timestamp int64
}

// entryHeaderSize is LSN(8) + OpType(1) + DataLen(4)
const entryHeaderSize = 13

// entryTrailerSize is Checksum(4) + Timestamp(8)
const entryTrailerSize = 12

// maxEntrySize bounds a single payload so a corrupt length field cannot
// trigger a huge allocation during recovery.
const maxEntrySize = 64 << 20
