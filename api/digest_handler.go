package api

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/tablehash/TableHash-Engine/digest"
	"github.com/tablehash/TableHash-Engine/hasher"
)

// DigestHandler turns an Arrow IPC stream payload into a digest reply.
type DigestHandler struct {
	mem     memory.Allocator
	newHash hasher.Factory
	metrics *Metrics
}

// NewDigestHandler creates a handler computing digests with the given
// hash family.
func NewDigestHandler(newHash hasher.Factory) *DigestHandler {
	return &DigestHandler{
		mem:     memory.NewGoAllocator(),
		newHash: newHash,
		metrics: DefaultMetrics,
	}
}

// ProcessRequest parses the payload as an Arrow IPC stream, digests
// every record batch in it and returns the lowercase hex digest as the
// response payload.
func (h *DigestHandler) ProcessRequest(data []byte) ([]byte, error) {
	start := time.Now()
	rows, batches, resp, err := h.process(data)
	h.metrics.RecordDigest(rows, batches, len(data), time.Since(start), err)
	return resp, err
}

func (h *DigestHandler) process(data []byte) (rows int64, batches int, resp []byte, err error) {
	if len(data) == 0 {
		return 0, 0, nil, fmt.Errorf("received empty request")
	}

	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(h.mem))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to create IPC reader: %w", err)
	}
	defer reader.Release()

	rh, err := digest.NewRecordHasher(reader.Schema(), h.newHash)
	if err != nil {
		return 0, 0, nil, err
	}

	for reader.Next() {
		rec := reader.Record()
		if err := rh.Update(rec); err != nil {
			return rows, batches, nil, err
		}
		rows += rec.NumRows()
		batches++
	}
	if reader.Err() != nil {
		return rows, batches, nil, fmt.Errorf("error reading Arrow stream: %w", reader.Err())
	}

	sum, err := rh.Finalize()
	if err != nil {
		return rows, batches, nil, err
	}
	return rows, batches, []byte(hex.EncodeToString(sum)), nil
}
