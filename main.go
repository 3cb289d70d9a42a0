package main

import (
	"github.com/bugzyGeek/DataSyncQuanta/cmd"
)

func main() {
	cmd.Execute()
}
