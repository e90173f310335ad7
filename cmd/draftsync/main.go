package main

import "github.com/vietddude/draftsync/internal/cli"

func main() {
	cli.Execute()
}
