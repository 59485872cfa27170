package main

import "github.com/deskgram/deskgram/cmd"

func main() {
	cmd.Execute()
}
