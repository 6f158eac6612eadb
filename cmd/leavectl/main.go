package main

import (
	"fmt"
	"os"

	"go-hris-leave/internal/cli"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "leavectl:", err)
		os.Exit(1)
	}
}
