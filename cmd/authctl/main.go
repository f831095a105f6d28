package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/AdamTroyan/AnjelaTroyaWeb/cmd/authctl/commands"
)

func main() {
	_ = godotenv.Load()

	if err := commands.NewRootCmd(commands.LoadCore).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
