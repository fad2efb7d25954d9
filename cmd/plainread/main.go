package main

import "github.com/plainread/plainread/internal/cli"

func main() {
	cli.Execute()
}
