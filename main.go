package main

import "github.com/zxrohex/diskstream/cmd"

func main() {
	cmd.Execute()
}
