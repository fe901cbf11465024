// Package main provides the mimicry CLI tool.
//
// Usage:
//
//	mimicry [flags] <command> [args]
//
// Commands:
//
//	analyze  - Report token and sentence statistics for a corpus
//	train    - Train a model from one or more corpus files
//	generate - Generate text from a trained model
//	models   - List models and database statistics
//	delete   - Delete a model and its chain data
//	prune    - Remove rare transitions from a model
//	export   - Export a model as JSON
//	import   - Import a previously exported model
//	serve    - Run the HTTP model API
//
// Configuration is stored in a JSON file (default ./mimicry.json) which is
// created with defaults on first run.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
