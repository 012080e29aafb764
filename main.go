package main

import "github.com/Alturino/pos/cmd"

func main() {
	cmd.Start()
}
