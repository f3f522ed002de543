package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/instaclone/cmd/instaclone"
)

func main() {
	rootCmd := instaclone.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, instaclone.FormatError(err))
		fmt.Fprintln(os.Stderr, instaclone.MsgErrHint)
		os.Exit(2)
	}
}
