package main

import (
	"os"

	"github.com/bbrzycki/datasetd/internal/cli"
)

var (
	// Set by LDFLAGS
	version = "dev"
)

func main() {
	cli.Version = version
	os.Exit(int(cli.Run()))
}
