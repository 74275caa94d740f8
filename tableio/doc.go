// Package tableio feeds Arrow data from files and byte streams into
// digesters. This package implements:
// - Arrow IPC serialization helpers (stream and file format)
// - Parquet ingestion that streams record batches without materializing
//   the whole table
package tableio
