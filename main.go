package main

import (
	"fmt"
	"os"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "TableHash-Engine"
)

func main() {
	fmt.Printf("%s v%s\n", Name, Version)
	fmt.Println("Stable logical digests for Apache Arrow data")
	fmt.Println("Commands: cmd/tablehash, cmd/digest-server")
	os.Exit(0)
}
