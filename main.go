package main

import (
	"github.com/audiolibrelab/retake/cmd"
)

func main() {
	cmd.Execute()
}
