package main

import "github.com/glimpse/glimpse/internal/cmd"

func main() {
	cmd.Execute()
}
