package main

import (
	"log"

	"github.com/b3nzuk3/gameCity-sub001/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
