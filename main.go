// =============================================================================
// Sales Validator - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Sales Validator CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   salesval clean      - Validate the input and write the cleaned file
//   salesval check      - Validate without writing
//   salesval rules      - Print the effective rules
//   salesval history    - List recent runs
//   salesval version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Validation, I/O and integrations
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sales-validator/cmd"
)

func main() {
	cmd.Execute()
}
