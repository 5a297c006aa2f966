package main

import "github.com/hashtrails/trailscan/internal/cli"

func main() {
	cli.Execute()
}
