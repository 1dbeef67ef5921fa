package main

import "github.com/agentic-research/archmap/cmd"

func main() {
	cmd.Execute()
}
