package main

import "offerwatch/cmd/offerwatch/commands"

func main() {
	commands.Execute()
}
