package main

import (
	"os"

	aidmcmder "github.com/aidm5e/aidm/cmd/aidm"
)

func main() {
	cmd := aidmcmder.NewAidmCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
