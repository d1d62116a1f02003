package main

import (
	"os"
)

const version = "0.1.0"

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := newRootCommand(a).Execute(); err != nil {
		os.Exit(1)
	}
}
