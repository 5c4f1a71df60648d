package main

import "github.com/josephlewis42/bigshell/cmd"

func main() {
	cmd.Execute()
}
