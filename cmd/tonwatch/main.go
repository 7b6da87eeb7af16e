package main

import "github.com/hedeqiang/tonwatch/cmd/tonwatch/cmd"

func main() {
	cmd.Execute()
}
