package main

import (
	"os"

	"github.com/koustreak/schemagen/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
