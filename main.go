package main

import "github.com/Kashuab/readerpool/cmd"

func main() {
	cmd.Execute()
}
