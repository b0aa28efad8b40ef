package main

import (
	"os"

	"github.com/Thnoxs/localy-v1/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
