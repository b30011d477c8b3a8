package main

import "taquilla-cli/cmd"

func main() {
	cmd.Execute()
}
