package main

import "github.com/ppiankov/auditgate/internal/cli"

func main() {
	cli.Execute()
}
