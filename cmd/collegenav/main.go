package main

import "github.com/pfrederiksen/collegenav/internal/cli"

func main() {
	cli.Execute()
}
