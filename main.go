package main

import "pocketpages/internal/cli"

func main() {
	cli.Execute()
}
