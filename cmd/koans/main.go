package main

import "github.com/dd0wney/koan-graphdb/cmd/koans/commands"

func main() {
	commands.Execute()
}
