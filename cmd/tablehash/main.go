package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tablehash/TableHash-Engine/hasher"
	"github.com/tablehash/TableHash-Engine/tableio"
)

func main() {
	algo := flag.String("algo", "sha3-256", "hash family: sha3-256, sha3-512, blake3, xxh64")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tablehash [-algo name] file...\n")
		fmt.Fprintf(os.Stderr, "Computes the stable logical digest of Arrow IPC (.arrow, .arrows) and Parquet (.parquet) files.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	newHash, err := hasher.ByName(*algo)
	if err != nil {
		log.Fatalf("Invalid -algo: %v", err)
	}

	ctx := context.Background()
	for _, path := range flag.Args() {
		var sum []byte
		var err error
		if strings.EqualFold(filepath.Ext(path), ".parquet") {
			sum, err = tableio.DigestParquetFile(ctx, path, newHash)
		} else {
			sum, err = tableio.DigestIPCFile(path, newHash)
		}
		if err != nil {
			log.Fatalf("Failed to digest %s: %v", path, err)
		}
		fmt.Printf("%s  %s\n", hex.EncodeToString(sum), path)
	}
}
