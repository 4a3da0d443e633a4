package main

import "github.com/vibast-solutions/ms-go-todo/cmd"

func main() {
	cmd.Execute()
}
