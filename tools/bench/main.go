// Command bench measures digest throughput on synthetic batches.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/tablehash/TableHash-Engine/digest"
	"github.com/tablehash/TableHash-Engine/engine"
	"github.com/tablehash/TableHash-Engine/hasher"
)

func benchSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "price", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "symbol", Type: arrow.BinaryTypes.String},
		{Name: "sizes", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32), Nullable: true},
	}, nil)
}

func makeBatch(schema *arrow.Schema, rows, seed int) arrow.Record {
	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()

	idb := rb.Field(0).(*array.Int64Builder)
	pb := rb.Field(1).(*array.Float64Builder)
	sb := rb.Field(2).(*array.StringBuilder)
	lb := rb.Field(3).(*array.ListBuilder)
	lvb := lb.ValueBuilder().(*array.Int32Builder)

	symbols := []string{"AAA", "BBBB", "CC", "DDDDD"}
	for i := 0; i < rows; i++ {
		n := seed + i
		idb.Append(int64(n))
		if n%13 == 0 {
			pb.AppendNull()
		} else {
			pb.Append(float64(n) * 0.25)
		}
		sb.Append(symbols[n%len(symbols)])
		if n%17 == 0 {
			lb.AppendNull()
		} else {
			lb.Append(true)
			for j := 0; j < n%5; j++ {
				lvb.Append(int32(n + j))
			}
		}
	}
	return rb.NewRecord()
}

func main() {
	rows := flag.Int("rows", 100_000, "rows per batch")
	batches := flag.Int("batches", 10, "number of batches")
	workers := flag.Int("workers", 0, "parallel workers (0 = NumCPU)")
	algo := flag.String("algo", "sha3-256", "hash family")
	flag.Parse()

	newHash, err := hasher.ByName(*algo)
	if err != nil {
		log.Fatalf("Invalid -algo: %v", err)
	}

	schema := benchSchema()
	recs := make([]arrow.Record, *batches)
	for i := range recs {
		recs[i] = makeBatch(schema, *rows, i**rows)
		defer recs[i].Release()
	}
	total := float64(*rows * *batches)

	// Sequential
	rh, err := digest.NewRecordHasher(schema, newHash)
	if err != nil {
		log.Fatal(err)
	}
	start := time.Now()
	for _, rec := range recs {
		if err := rh.Update(rec); err != nil {
			log.Fatal(err)
		}
	}
	seqSum, err := rh.Finalize()
	if err != nil {
		log.Fatal(err)
	}
	seqDur := time.Since(start)

	// Parallel
	ph, err := engine.NewParallelRecordHasher(schema, newHash, *workers)
	if err != nil {
		log.Fatal(err)
	}
	start = time.Now()
	for _, rec := range recs {
		if err := ph.Update(rec); err != nil {
			log.Fatal(err)
		}
	}
	parSum, err := ph.Finalize()
	if err != nil {
		log.Fatal(err)
	}
	parDur := time.Since(start)

	if fmt.Sprintf("%x", seqSum) != fmt.Sprintf("%x", parSum) {
		log.Fatalf("parallel digest mismatch: %x != %x", parSum, seqSum)
	}

	fmt.Printf("algo=%s rows=%d batches=%d\n", *algo, *rows, *batches)
	fmt.Printf("digest      %x\n", seqSum)
	fmt.Printf("sequential  %v (%.0f rows/s)\n", seqDur, total/seqDur.Seconds())
	fmt.Printf("parallel    %v (%.0f rows/s)\n", parDur, total/parDur.Seconds())
}
