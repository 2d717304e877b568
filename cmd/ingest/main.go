package main

import "github.com/runcrew/ingest/cmd/ingest/cmd"

func main() {
	cmd.Execute()
}
