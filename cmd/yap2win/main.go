package main

import (
	"log"

	"github.com/cheng-chun-yuan/yap2win/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("exited with error: %v", err)
	}
}
