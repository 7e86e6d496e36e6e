package main

import (
	"fmt"
	"os"

	"github.com/umq7573/streaky-shooter/internal/cli"
	"github.com/umq7573/streaky-shooter/pkg/version"
)

func run() error {
	return cli.NewRootCmd(version.GetVersion()).Execute()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
