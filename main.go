// Package main provides the command-line entry point for the OMR sheet reader.
//
// The image path is taken from the first argument, or else from a JSON object
// {"image_path": "..."} on stdin. One JSON object is printed to stdout: the
// reading, or a structured error. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"omr-reader/internal/config"
	"omr-reader/internal/debug"
	"omr-reader/internal/omr"
	"omr-reader/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stderr)

	configPath := flag.String("config", "", "Configuration file (YAML or JSON)")
	debugDir := flag.String("debug-dir", "", "Directory for debug images")
	questions := flag.Int("questions", 0, "Number of questions on the sheet (0 keeps the configured value)")
	choices := flag.Int("choices", 0, "Number of choices per question (0 keeps the configured value)")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("omr-reader " + version.String())
		return
	}

	out, err := run(*configPath, *debugDir, *questions, *choices)
	if err != nil {
		log.Printf("omr-reader: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		log.Fatalf("writing result: %v", err)
	}
}

// run reads one sheet. Failures are returned both as the error and as the
// structured value to print.
func run(configPath, debugDir string, questions, choices int) (interface{}, error) {
	cfg, err := loadConfig(configPath, debugDir, questions, choices)
	if err != nil {
		err = fmt.Errorf("%w: %v", omr.ErrBadInput, err)
		return omr.NewErrorResult(err, ""), err
	}

	path, err := omr.ReadInputPath(flag.Args(), os.Stdin)
	if err != nil {
		return omr.NewErrorResult(err, ""), err
	}

	ctx := context.Background()
	sink, err := debug.New(ctx, cfg.Debug)
	if err != nil {
		return omr.NewErrorResult(err, path), err
	}

	res, err := omr.New(cfg, sink).ProcessFile(ctx, path)
	if err != nil {
		return omr.NewErrorResult(err, path), err
	}
	return res, nil
}

func loadConfig(path, debugDir string, questions, choices int) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debugDir != "" {
		cfg.Debug.Dir = debugDir
	}
	if questions > 0 || choices > 0 {
		q, c := cfg.Grid.Questions, cfg.Grid.Choices
		if questions > 0 {
			q = questions
		}
		if choices > 0 {
			c = choices
		}
		cfg.Grid = cfg.Grid.WithLayout(q, c)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
