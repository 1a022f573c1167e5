// Thera - single image viewer and enlarger

package main

import (
	"os"
)

const (
	AppName    = "Thera"
	AppID      = "io.thera.viewer"
	AppVersion = "1.0.0"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
