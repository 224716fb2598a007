package main

import "github.com/globaltrotters/apiserver/cmd"

func main() {
	cmd.Execute()
}
