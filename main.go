package main

import "github.com/AryaBuddha/iclicker-evade/cmd"

func main() {
	cmd.Execute()
}
