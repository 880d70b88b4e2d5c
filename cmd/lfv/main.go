package main

import (
	"os"

	"lfsvault/cmd/lfv/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		// cobra 已经把错误打到 stderr 了，这里只负责退出码
		os.Exit(1)
	}
}
