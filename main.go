package main

import "stableguard/internal/cli"

func main() {
	cli.Execute()
}
