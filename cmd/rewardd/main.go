package main

import (
	"log"

	"azorion/cmd/internal/passphrase"
	"azorion/services/rewardd"
)

func main() {
	source := func(envVar string) (string, error) {
		return passphrase.NewSource(envVar).Get()
	}
	if err := rewardd.Main(source); err != nil {
		log.Fatalf("rewardd: %v", err)
	}
}
