// Command imgsearch queries and maintains image metadata corpora offline.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/cmd/imgsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
