package main

import (
	"os"

	"search-chat/backend/internal/app"
)

// @title           Search Chat API
// @version         1.0
// @description     Chat history and streaming AI Search chat completions.
func main() {
	os.Exit(app.Run())
}
