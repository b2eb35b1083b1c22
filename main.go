package main

import "github.com/yeti47/eight/cmd"

func main() {
	cmd.Execute()
}
