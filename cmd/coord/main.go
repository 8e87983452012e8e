// Command coord runs the task coordination demo.
package main

import (
	"fmt"
	"os"

	"github.com/NetPo4ki/go-coord/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
