// Command mutlist manages mutation lists from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/parseq/mutation_sdk_go/internal/config"
	"github.com/parseq/mutation_sdk_go/internal/logger"
)

func main() {
	config.LoadDotEnv()
	defer logger.Sync()

	if err := newRootCmd(os.Stdout, nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
