package main

import (
	"log"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	_ "github.com/klipach/dietapp"
)

const defaultPort = "8082"

// FUNCTION_TARGET=Api go run ./cmd
func main() {
	port := defaultPort
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	log.Printf("Started on port %s", port)

	if err := funcframework.Start(port); err != nil {
		log.Fatalf("funcframework.Start: %v\n", err)
	}

	log.Println("Done")
}
