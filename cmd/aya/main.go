package main

import (
	"os"

	"aya/cmd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
