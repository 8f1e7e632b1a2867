package main

import "earnings-rag/internal/cli"

func main() {
	cli.Execute()
}
