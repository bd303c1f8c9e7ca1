package main

import (
	"os"

	"github.com/strata-cms/strata/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
