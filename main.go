package main

import "github.com/audiolibrelab/jampiano/cmd"

func main() {
	cmd.Execute()
}
