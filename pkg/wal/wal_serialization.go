package wal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// writeEntry writes a single entry.
// Format: [LSN:8][OpType:1][DataLen:4][Data:N][Checksum:4][Timestamp:8], little endian.
func writeEntry(w *bufio.Writer, entry *Entry) error {
	var header [entryHeaderSize]byte
	binary.LittleEndian.PutUint64(header[0:8], entry.LSN)
	header[8] = byte(entry.OpType)
	binary.LittleEndian.PutUint32(header[9:13], uint32(len(entry.Data)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if _, err := w.Write(entry.Data); err != nil {
		return err
	}

	var trailer [entryTrailerSize]byte
	binary.LittleEndian.PutUint32(trailer[0:4], entry.Checksum)
	binary.LittleEndian.PutUint64(trailer[4:12], uint64(entry.Timestamp))
	_, err := w.Write(trailer[:])
	return err
}

// readEntry reads a single entry. io.EOF is returned only on a clean entry
// boundary; a partial entry yields io.ErrUnexpectedEOF.
func readEntry(r *bufio.Reader) (*Entry, int64, error) {
	var header [entryHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, 0, err
	}

	entry := &Entry{
		LSN:    binary.LittleEndian.Uint64(header[0:8]),
		OpType: OpType(header[8]),
	}

	dataLen := binary.LittleEndian.Uint32(header[9:13])
	if dataLen > maxEntrySize {
		return nil, 0, fmt.Errorf("entry LSN=%d: length %d exceeds limit", entry.LSN, dataLen)
	}

	entry.Data = make([]byte, dataLen)
	if _, err := io.ReadFull(r, entry.Data); err != nil {
		return nil, 0, unexpected(err)
	}

	var trailer [entryTrailerSize]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, 0, unexpected(err)
	}
	entry.Checksum = binary.LittleEndian.Uint32(trailer[0:4])
	entry.Timestamp = int64(binary.LittleEndian.Uint64(trailer[4:12]))

	return entry, int64(entryHeaderSize) + int64(dataLen) + entryTrailerSize, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
