package main

import (
	"context"
	"os"

	"github.com/duckask/duckask/internal/cli/duckask"
)

func main() {
	os.Exit(duckask.Execute(context.Background()))
}
