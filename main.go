package main

import "crev/cmd"

func main() {
	cmd.Execute()
}
