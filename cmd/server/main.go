package main

import "chat-workspace/internal/cli"

func main() {
	cli.Execute()
}
