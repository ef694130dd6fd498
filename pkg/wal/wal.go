package wal

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
)

// payloadCodec transforms payloads between their appended and stored forms
type payloadCodec interface {
	encode(data []byte) []byte
	decode(stored []byte) ([]byte, error)
}

type plainCodec struct{}

func (plainCodec) encode(data []byte) []byte            { return data }
func (plainCodec) decode(stored []byte) ([]byte, error) { return stored, nil }

// logFile is the append-only file shared by WAL and CompressedWAL
type logFile struct {
	file       *os.File
	writer     *bufio.Writer
	path       string
	currentLSN uint64
	codec      payloadCodec
	logger     logging.Logger
	mu         sync.Mutex
}

// WAL is a Write-Ahead Log for durability
type WAL struct {
	*logFile
}

// NewWAL opens (or creates) dataDir/wal.log. A torn or corrupt tail left by a
// crash is cut off so new entries are appended after the last valid one.
func NewWAL(dataDir string, logger logging.Logger) (*WAL, error) {
	lf, err := openLogFile(filepath.Join(dataDir, "wal.log"), plainCodec{}, logger)
	if err != nil {
		return nil, err
	}
	return &WAL{logFile: lf}, nil
}

func openLogFile(path string, codec payloadCodec, logger logging.Logger) (*logFile, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	lf := &logFile{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
		codec:  codec,
		logger: logger.With(logging.Component("wal"), logging.Path(path)),
	}

	if err := lf.recover(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to recover WAL: %w", err)
	}

	return lf, nil
}

// recover sets currentLSN from the existing entries and truncates any
// invalid tail.
func (l *logFile) recover() error {
	validSize, lastLSN, err := l.scan(nil)
	if err != nil {
		return err
	}
	l.currentLSN = lastLSN

	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() > validSize {
		l.logger.Warn("truncating invalid WAL tail",
			logging.Int64("valid_bytes", validSize),
			logging.Int64("file_bytes", info.Size()),
		)
		if err := l.file.Truncate(validSize); err != nil {
			return fmt.Errorf("failed to truncate WAL tail: %w", err)
		}
		if err := l.file.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// scan reads the file from the start, calling handler for each valid entry.
// It stops at the first torn, corrupt or out-of-order entry and reports the
// byte length of the valid prefix.
func (l *logFile) scan(handler func(*Entry) error) (int64, uint64, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var validSize int64
	var lastLSN uint64
	var entriesRead int

	for {
		entry, n, err := readEntry(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			l.logger.Warn("WAL corruption detected, recovery stopped",
				logging.Count(entriesRead), logging.Error(err))
			break
		}

		if crc32.ChecksumIEEE(entry.Data) != entry.Checksum {
			l.logger.Warn("WAL checksum mismatch, recovery stopped",
				logging.Uint64("lsn", entry.LSN), logging.Count(entriesRead))
			break
		}

		if entry.LSN <= lastLSN {
			l.logger.Warn("WAL sequence regression, recovery stopped",
				logging.Uint64("lsn", entry.LSN), logging.Uint64("previous_lsn", lastLSN))
			break
		}

		data, err := l.codec.decode(entry.Data)
		if err != nil {
			l.logger.Warn("WAL payload decode failed, recovery stopped",
				logging.Uint64("lsn", entry.LSN), logging.Error(err))
			break
		}
		entry.Data = data

		if handler != nil {
			if err := handler(entry); err != nil {
				return validSize, lastLSN, fmt.Errorf("failed to replay entry LSN=%d: %w", entry.LSN, err)
			}
		}

		validSize += n
		lastLSN = entry.LSN
		entriesRead++
	}

	return validSize, lastLSN, nil
}

// Append appends a new entry to the WAL and syncs it to disk
func (l *logFile) Append(opType OpType, data []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, errors.New("WAL is closed")
	}
	if l.currentLSN == ^uint64(0) {
		return 0, fmt.Errorf("WAL LSN space exhausted - require WAL rotation")
	}

	stored := l.codec.encode(data)
	entry := Entry{
		LSN:       l.currentLSN + 1,
		OpType:    opType,
		Data:      stored,
		Checksum:  crc32.ChecksumIEEE(stored),
		Timestamp: time.Now().Unix(),
	}

	if err := writeEntry(l.writer, &entry); err != nil {
		return 0, fmt.Errorf("failed to write WAL entry: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush WAL: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync WAL: %w", err)
	}

	l.currentLSN = entry.LSN
	return entry.LSN, nil
}

// ReadAll reads all valid entries from the WAL
func (l *logFile) ReadAll() ([]*Entry, error) {
	var entries []*Entry
	err := l.Replay(func(e *Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// Replay calls handler for each valid entry in order
func (l *logFile) Replay(handler func(*Entry) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return err
		}
	}
	_, _, err := l.scan(handler)
	return err
}

// Truncate removes every entry and resets the LSN (used after snapshot)
func (l *logFile) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("WAL is closed")
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush WAL before truncate: %w", err)
	}
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate WAL: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return err
	}

	l.currentLSN = 0
	return nil
}

// GetCurrentLSN returns the current LSN
func (l *logFile) GetCurrentLSN() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLSN
}

// Close flushes and closes the WAL
func (l *logFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}
	if err := l.file.Sync(); err != nil {
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Open returns a compressed or plain WAL in dataDir
func Open(dataDir string, compressed bool, logger logging.Logger) (WriteAheadLog, error) {
	if compressed {
		return NewCompressedWAL(dataDir, logger)
	}
	return NewWAL(dataDir, logger)
}
