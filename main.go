package main

import (
	"context"
	"os"

	_ "git.flipper.school/flipper/flipper/src/migration"
	"git.flipper.school/flipper/flipper/src/website"
)

func main() {
	if err := website.WebsiteCommand.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
