package main

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/pairrank/internal/cli"
	"github.com/okian/pairrank/pkg/logger"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
