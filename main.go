package main

import "albedo-tools/cmd"

func main() {
	cmd.Execute()
}
