package main

import "github.com/sshmux/sshmux/cmd"

func main() {
	cmd.Execute()
}
