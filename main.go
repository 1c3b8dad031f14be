package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/tessbox/cmd"
	"github.com/lehigh-university-libraries/tessbox/internal/utils"
)

func main() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		utils.ExitOnError("Error loading .env file", err)
	}

	if err := fang.Execute(context.Background(), cmd.RootCmd); err != nil {
		os.Exit(1)
	}
}
