// Scanctl scans files for secrets with the configured detector and optionally
// writes redacted copies.
//
// Usage:
//
//	scanctl scan config.json .env             # report findings as JSON
//	scanctl scan --redact --out clean/ *.json  # write redacted copies
//	cat payload.json | scanctl scan --redact - # redact stdin
//
// Exit codes: 0 clean, 1 secrets detected, 2 usage error, 4 a file could not be scanned.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/kailas-cloud/scanguard/internal/cli"
)

func main() {
	// .env may carry SCANGUARD_DETECTOR_API_KEY; real environment variables win.
	_ = godotenv.Load()

	os.Exit(cli.Run())
}
