package tableio

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/tablehash/TableHash-Engine/digest"
	"github.com/tablehash/TableHash-Engine/hasher"
)

// parquetBatchSize bounds how many rows are materialized at once while
// streaming a Parquet file into a digester.
const parquetBatchSize = 64 * 1024

// DigestParquetFile streams the record batches of a Parquet file into a
// record hasher and returns the digest. Batch-split invariance makes the
// result independent of row group layout and batch size.
func DigestParquetFile(ctx context.Context, path string, newHash hasher.Factory) ([]byte, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf,
		pqarrow.ArrowReadProperties{BatchSize: parquetBatchSize},
		memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	schema, err := fr.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	rh, err := digest.NewRecordHasher(schema, newHash)
	if err != nil {
		return nil, err
	}

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create record reader: %w", err)
	}
	defer rr.Release()

	for {
		rec, err := rr.Read()
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
