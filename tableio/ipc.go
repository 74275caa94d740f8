package tableio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/tablehash/TableHash-Engine/digest"
	"github.com/tablehash/TableHash-Engine/hasher"
)

// arrowFileMagic opens every Arrow file-format file; the stream format
// has no leading magic.
var arrowFileMagic = []byte("ARROW1\x00\x00")

// IPCCodec converts between record batches and IPC bytes.
type IPCCodec struct {
	mem memory.Allocator
}

// NewIPCCodec creates a codec with the default allocator.
func NewIPCCodec() *IPCCodec {
	return &IPCCodec{mem: memory.DefaultAllocator}
}

// Serialize writes a single record to IPC stream bytes.
func (c *IPCCodec) Serialize(rec arrow.Record) ([]byte, error) {
	return c.SerializeAll([]arrow.Record{rec})
}

// SerializeAll writes records sharing one schema to IPC stream bytes.
func (c *IPCCodec) SerializeAll(recs []arrow.Record) ([]byte, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("no records to serialize")
	}

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(recs[0].Schema()), ipc.WithAllocator(c.mem))

	for i, rec := range recs {
		if err := writer.Write(rec); err != nil {
			writer.Close()
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// ReadAll deserializes IPC stream bytes into records. The caller owns
// the returned records and must Release them.
func (c *IPCCodec) ReadAll(data []byte) ([]arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(c.mem))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	var records []arrow.Record
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}

	if reader.Err() != nil {
		for _, r := range records {
			r.Release()
		}
		return nil, reader.Err()
	}

	return records, nil
}

// DigestIPCStream digests every record batch of an IPC stream.
func DigestIPCStream(r io.Reader, newHash hasher.Factory) ([]byte, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	rh, err := digest.NewRecordHasher(reader.Schema(), newHash)
	if err != nil {
		return nil, err
	}
	for reader.Next() {
		if err := rh.Update(reader.Record()); err != nil {
			return nil, err
		}
	}
	if reader.Err() != nil {
		return nil, reader.Err()
	}
	return rh.Finalize()
}

// DigestIPCFile digests an Arrow file in either the file format
// (sniffed via the ARROW1 magic) or the stream format.
func DigestIPCFile(path string, newHash hasher.Factory) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	magic := make([]byte, len(arrowFileMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if !bytes.Equal(magic, arrowFileMagic) {
		return DigestIPCStream(f, newHash)
	}

	reader, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file %s: %w", path, err)
	}
	defer reader.Close()

	rh, err := digest.NewRecordHasher(reader.Schema(), newHash)
	if err != nil {
		return nil, err
	}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if err := rh.Update(rec); err != nil {
			return nil, err
		}
	}
	return rh.Finalize()
}
