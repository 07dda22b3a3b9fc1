package main

import (
	"fmt"
	"os"

	"github.com/dongY99/mju-backend-60182195/cmd/chatd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
