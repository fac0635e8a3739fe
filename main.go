package main

import "threadpilot/cmd"

func main() {
	cmd.Execute()
}
