// Command whitedwarf runs the mesh analysis and artifact service.
//
// Usage:
//
//	whitedwarf serve [-config whitedwarf.yaml]
//	whitedwarf analyze [-config whitedwarf.yaml] mesh.obj
//	whitedwarf health [-addr http://localhost:8000]
//	whitedwarf version
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/chazu/whitedwarf/internal/config"
	"github.com/chazu/whitedwarf/internal/logger"
)

// Set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "health":
		err = runHealth(os.Args[2:])
	case "version":
		fmt.Printf("whitedwarf %s (%s)\n", Version, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "whitedwarf: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: whitedwarf <command> [flags]

commands:
  serve     run the HTTP service
  analyze   print the stability report for a mesh file
  health    query a running service's /health endpoint
  version   print version information`)
}

// runAnalyze classifies one mesh file offline with the configured rules.
func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("analyze: expected one mesh file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Console: os.Stderr})
	defer func() { _ = log.Sync() }()

	analyzer, err := newAnalyzer(cfg, log)
	if err != nil {
		return err
	}
	report, err := analyzer.AnalyzeFile(fs.Arg(0))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8000", "service base URL")
	_ = fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: status %d", resp.StatusCode)
	}
	fmt.Println("OK")
	return nil
}
