package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/scanguard"
	logpkg "github.com/kailas-cloud/scanguard/internal/logger"
)

// APIKeyEnv supplies the detector key when --api-key is not given.
const APIKeyEnv = "SCANGUARD_DETECTOR_API_KEY"

const (
	defaultDetectorURL = "https://api.gitguardian.com"
	stdinName          = "stdin"
)

// Scan flags
var (
	flagRedact      bool
	flagDetectorURL string
	flagAPIKey      string
	flagMaxBytes    int
	flagMaxDocs     int
	flagMarker      string
	flagOffsetUnit  string
	flagOut         string
	flagTimeout     time.Duration
	flagConcurrency int
	flagVerbose     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Scan files for secrets (use - for stdin)",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitCode = runScan(cmd, args)
	},
}

func init() {
	addScanFlags(scanCmd)
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagRedact, "redact", false, "Replace detected secrets in the output")
	cmd.Flags().StringVar(&flagDetectorURL, "detector-url", defaultDetectorURL, "Detector base URL")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "Detector API key (default: $"+APIKeyEnv+")")
	cmd.Flags().IntVar(&flagMaxBytes, "max-bytes", 1<<20, "Maximum bytes per detector document")
	cmd.Flags().IntVar(&flagMaxDocs, "max-docs", 20, "Maximum documents per detector call")
	cmd.Flags().StringVar(&flagMarker, "marker", "", "Redaction marker (default: REDACTED)")
	cmd.Flags().StringVar(&flagOffsetUnit, "offset-unit", "", "Detector offset unit (byte, rune)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Directory for redacted copies (requires --redact)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Detector call timeout")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "Files scanned in parallel")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log scan progress to stderr")
}

// fileReport is the JSON line printed for one input. Content is only printed
// redacted and only when no output directory is set.
type fileReport struct {
	File         string                  `json:"file"`
	ScanID       string                  `json:"scan_id"`
	Detected     bool                    `json:"detected"`
	Degraded     bool                    `json:"degraded"`
	Error        string                  `json:"error,omitempty"`
	PolicyBreaks []scanguard.PolicyBreak `json:"policy_breaks"`
	Redactions   []scanguard.Redaction   `json:"redactions"`
	Content      *string                 `json:"content,omitempty"`
	Written      string                  `json:"written,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) int {
	stderr := cmd.ErrOrStderr()

	apiKey := flagAPIKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		fmt.Fprintf(stderr, "Error: detector API key required (--api-key or $%s)\n", APIKeyEnv)
		return ExitUsageError
	}
	if flagOut != "" && !flagRedact {
		fmt.Fprintln(stderr, "Error: --out requires --redact")
		return ExitUsageError
	}

	items, err := readInputs(cmd.InOrStdin(), args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsageError
	}

	logger := logpkg.NewCLILogger(flagVerbose)
	defer func() { _ = logger.Sync() }()

	client, err := scanguard.New(
		scanguard.WithDetector(flagDetectorURL, apiKey),
		scanguard.WithLimits(flagMaxBytes, flagMaxDocs),
		scanguard.WithMarker(flagMarker),
		scanguard.WithOffsetUnit(flagOffsetUnit),
		scanguard.WithTimeout(flagTimeout),
		scanguard.WithConcurrency(flagConcurrency),
		scanguard.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsageError
	}

	outcomes := client.ScanAll(context.Background(), items, scanguard.ScanOptions{Redact: flagRedact})

	reports := make([]fileReport, len(outcomes))
	code := ExitClean
	for i, out := range outcomes {
		reports[i] = toReport(args[i], out)
		code = worse(code, outcomeCode(out))

		if flagOut == "" || out.Degraded() {
			continue
		}
		path, err := writeRedacted(flagOut, items[i].Name, out.Content)
		if err != nil {
			fmt.Fprintf(stderr, "Error writing %s: %v\n", items[i].Name, err)
			code = worse(code, ExitRuntimeError)
			continue
		}
		reports[i].Written = path
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		return worse(code, ExitRuntimeError)
	}
	return code
}

// readInputs loads every argument; "-" reads stdin once.
func readInputs(stdin io.Reader, args []string) ([]scanguard.Item, error) {
	items := make([]scanguard.Item, len(args))
	stdinRead := false
	for i, arg := range args {
		if arg == "-" {
			if stdinRead {
				return nil, fmt.Errorf("stdin given more than once")
			}
			stdinRead = true
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			items[i] = scanguard.Item{Content: string(data), Name: stdinName}
			continue
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", arg, err)
		}
		items[i] = scanguard.Item{Content: string(data), Name: arg}
	}
	return items, nil
}

func toReport(file string, out scanguard.Outcome) fileReport {
	r := fileReport{
		File:         file,
		ScanID:       out.ScanID,
		Detected:     out.Detected(),
		Degraded:     out.Degraded(),
		PolicyBreaks: out.PolicyBreaks,
		Redactions:   out.Redactions,
	}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	if flagRedact && flagOut == "" && !out.Degraded() {
		content := out.Content
		r.Content = &content
	}
	return r
}

// writeRedacted stores content under dir using the input's base name.
func writeRedacted(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

func outcomeCode(out scanguard.Outcome) int {
	switch {
	case out.Degraded():
		return ExitDegraded
	case out.Detected():
		return ExitDetected
	default:
		return ExitClean
	}
}

// worse returns the higher-priority exit code: degraded > runtime > detected > clean.
func worse(a, b int) int {
	rank := func(code int) int {
		switch code {
		case ExitDegraded:
			return 3
		case ExitRuntimeError:
			return 2
		case ExitDetected:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
