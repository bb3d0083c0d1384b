package main

import "github.com/sadopc/screenly/cmd"

func main() {
	cmd.Execute()
}
