package metrics

import (
	"time"
)

// StorageMetrics provides observability for storage operations and the
// concurrency gate.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead. It satisfies gate.Metrics, so the same instance can be
// handed to the gate.
//
// Example usage:
//
//	m := prometheus.NewStorageMetrics()
//	g := gate.New(gate.Config{LockTimeout: 5 * time.Second, Metrics: m})
type StorageMetrics interface {
	// RecordOperationStart increments the in-flight counter of operation.
	RecordOperationStart(operation string)

	// RecordOperation records a completed operation and decrements the
	// in-flight counter.
	//
	// Parameters:
	//   - operation: storage operation name (e.g. "mkdir", "rename")
	//   - kind: stable error kind tag, "OK" on success
	//   - duration: time taken, including gate waits
	RecordOperation(operation, kind string, duration time.Duration)

	// RecordUploadBytes records the size of a stored upload.
	RecordUploadBytes(bytes int64)

	// ObserveWait records how long a gate acquisition waited.
	ObserveWait(mode string, wait time.Duration)

	// RecordTimeout records an exclusive acquisition that timed out.
	RecordTimeout(mode string)
}

// RecordOperationStart calls m.RecordOperationStart when m is non-nil.
func RecordOperationStart(m StorageMetrics, operation string) {
	if m != nil {
		m.RecordOperationStart(operation)
	}
}

// RecordOperation calls m.RecordOperation when m is non-nil.
func RecordOperation(m StorageMetrics, operation, kind string, duration time.Duration) {
	if m != nil {
		m.RecordOperation(operation, kind, duration)
	}
}

// RecordUploadBytes calls m.RecordUploadBytes when m is non-nil.
func RecordUploadBytes(m StorageMetrics, bytes int64) {
	if m != nil {
		m.RecordUploadBytes(bytes)
	}
}
