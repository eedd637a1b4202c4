package main

import (
	"fmt"
	"os"

	"github.com/arctir/verdict/cmd"
)

func main() {
	verdictCmd := cmd.SetupCLI()
	if err := verdictCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
