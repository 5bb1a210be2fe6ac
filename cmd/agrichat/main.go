// Command agrichat is a farming and weather assistant for the terminal.
package main

import "github.com/mkulima/agrichat/internal/commands"

func main() {
	commands.Execute()
}
