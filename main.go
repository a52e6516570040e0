package main

import "aide/cmd"

func main() {
	cmd.Execute()
}
