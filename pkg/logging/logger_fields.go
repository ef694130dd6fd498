package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error records err under the "error" key; a nil error yields a nil value
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain-specific helpers

func Component(name string) Field {
	return Field{Key: "component", Value: name}
}

func TxID(id uint64) Field {
	return Field{Key: "tx_id", Value: id}
}

func NodeID(id uint64) Field {
	return Field{Key: "node_id", Value: id}
}

func RelationshipID(id uint64) Field {
	return Field{Key: "relationship_id", Value: id}
}

func Latency(d time.Duration) Field {
	return Field{Key: "latency_ms", Value: float64(d.Microseconds()) / 1000.0}
}

func Count(n int) Field {
	return Field{Key: "count", Value: n}
}

func Path(p string) Field {
	return Field{Key: "path", Value: p}
}
