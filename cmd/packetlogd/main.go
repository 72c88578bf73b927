package main

import (
	"os"

	"github.com/packetlog/packetlogd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
