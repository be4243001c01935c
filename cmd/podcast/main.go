package main

import "podcast/internal/cli"

func main() {
	cli.Execute()
}
