// Package scanguard scans text for secrets with a remote detector and redacts
// what it finds.
//
// Content is split into detector documents (JSON that exceeds the document
// size limit is chunked structurally), scanned in one batch call, and every
// reported span is replaced with a marker. A failed scan never loses content:
// the Outcome carries the original text and the error.
//
//	client, _ := scanguard.New(
//	    scanguard.WithDetector("https://api.gitguardian.com", os.Getenv("GITGUARDIAN_API_KEY")),
//	    scanguard.WithMarker("[secret]"),
//	)
//	out := client.Scan(ctx, payload, "request.json", scanguard.ScanOptions{Redact: true})
//	if out.Degraded() {
//	    log.Printf("scan failed: %v", out.Err)
//	}
//	forward(out.Content)
package scanguard
