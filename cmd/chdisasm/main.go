package main

import (
	"log/slog"
	"os"

	"chdisasm/internal/chdisasm/cmd"
	"chdisasm/internal/chdisasm/log"
)

func main() {
	defer log.RecoverPanic("main", func() {
		slog.Error("Application terminated due to unhandled panic")
		os.Exit(1)
	})

	cmd.Execute()
}
