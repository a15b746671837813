package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/parcelman/internal/app"
)

func main() {
	if err := app.Run(nil, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
