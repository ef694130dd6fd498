package wal

import (
	"path/filepath"
	"sync/atomic"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
	"github.com/golang/snappy"
)

// CompressedWAL is a Write-Ahead Log with snappy-compressed payloads. The
// checksum covers the compressed bytes.
type CompressedWAL struct {
	*logFile
	codec *snappyCodec
}

// CompressedWALStats holds compression statistics
type CompressedWALStats struct {
	TotalWrites       uint64
	BytesUncompressed uint64
	BytesCompressed   uint64
	CompressionRatio  float64 // compressed / uncompressed
}

type snappyCodec struct {
	totalWrites       atomic.Uint64
	bytesUncompressed atomic.Uint64
	bytesCompressed   atomic.Uint64
}

func (c *snappyCodec) encode(data []byte) []byte {
	compressed := snappy.Encode(nil, data)
	c.totalWrites.Add(1)
	c.bytesUncompressed.Add(uint64(len(data)))
	c.bytesCompressed.Add(uint64(len(compressed)))
	return compressed
}

func (c *snappyCodec) decode(stored []byte) ([]byte, error) {
	return snappy.Decode(nil, stored)
}

// NewCompressedWAL opens (or creates) dataDir/wal_compressed.log
func NewCompressedWAL(dataDir string, logger logging.Logger) (*CompressedWAL, error) {
	codec := &snappyCodec{}
	lf, err := openLogFile(filepath.Join(dataDir, "wal_compressed.log"), codec, logger)
	if err != nil {
		return nil, err
	}
	return &CompressedWAL{logFile: lf, codec: codec}, nil
}

// GetStats returns compression statistics for entries appended since open
func (w *CompressedWAL) GetStats() CompressedWALStats {
	stats := CompressedWALStats{
		TotalWrites:       w.codec.totalWrites.Load(),
		BytesUncompressed: w.codec.bytesUncompressed.Load(),
		BytesCompressed:   w.codec.bytesCompressed.Load(),
	}
	if stats.BytesUncompressed > 0 {
		stats.CompressionRatio = float64(stats.BytesCompressed) / float64(stats.BytesUncompressed)
	}
	return stats
}
