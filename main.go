package main

import (
	"github.com/arjn/leetrack/cmd"
)

func main() {
	cmd.Execute()
}
