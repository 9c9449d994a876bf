package main

import (
	"os"

	"horse.fit/cybernews/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
