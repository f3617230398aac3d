package main

import (
	"os"

	"ticketapi/internal/validation"
)

// Standalone entry point: go run scripts/validate.go -url http://localhost:3000
func main() {
	validation.RunValidation(os.Args[1:])
}
