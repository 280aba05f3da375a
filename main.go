// Package main is entrypoint for the application
package main

import (
	"github.com/ashwaniclecvdoc/vc-backend-scale/cmd"
)

func main() {
	cmd.Run()
}
