// Package main is the entry point for the tscli command.
package main

import "github.com/quantpulse/tradestation-go/internal/cli"

func main() {
	cli.Execute()
}
