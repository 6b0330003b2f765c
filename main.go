package main

import "github.com/audiolibrelab/hookline/cmd"

func main() {
	cmd.Execute()
}
