package main

import (
	"fmt"
	"os"

	"github.com/jonesrussell/crawlorc/cmd/orchestratord"
)

func main() {
	if err := orchestratord.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
