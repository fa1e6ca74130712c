// riskcheck scores a single piece of text with the deterministic risk scorer,
// outside of any session. It is meant for lexicon tuning and compliance
// review: feed it the text and the session context, read the assessment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stillpointhq/stillpoint/internal/lexicon"
	"github.com/stillpointhq/stillpoint/internal/risk"
)

type options struct {
	text        string
	file        string
	iterations  int
	durationMin float64
	grounding   int
	prior       float64
	lexiconPath string
	pretty      bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "riskcheck: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "riskcheck: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	fs := flag.NewFlagSet("riskcheck", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.text, "text", "", "text to score")
	fs.StringVar(&cfg.file, "file", "", "read the text from a file ('-' for stdin)")
	fs.IntVar(&cfg.iterations, "iterations", 0, "iterations already completed in the session")
	fs.Float64Var(&cfg.durationMin, "duration-min", 0, "minutes spent in the session")
	fs.IntVar(&cfg.grounding, "grounding", 0, "grounding exercises already inserted")
	fs.Float64Var(&cfg.prior, "prior", 0, "previous depth score in [0,1]")
	fs.StringVar(&cfg.lexiconPath, "lexicon", "", "optional lexicon YAML override")
	fs.BoolVar(&cfg.pretty, "pretty", false, "indent the JSON output")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if strings.TrimSpace(cfg.text) == "" && strings.TrimSpace(cfg.file) == "" {
		return options{}, fmt.Errorf("one of -text or -file is required")
	}
	if strings.TrimSpace(cfg.text) != "" && strings.TrimSpace(cfg.file) != "" {
		return options{}, fmt.Errorf("-text and -file are mutually exclusive")
	}
	if cfg.iterations < 0 {
		return options{}, fmt.Errorf("iterations must be >= 0")
	}
	if cfg.durationMin < 0 {
		return options{}, fmt.Errorf("duration-min must be >= 0")
	}
	if cfg.grounding < 0 {
		return options{}, fmt.Errorf("grounding must be >= 0")
	}
	if cfg.prior < 0 || cfg.prior > 1 {
		return options{}, fmt.Errorf("prior must be in [0,1]")
	}
	return cfg, nil
}

func run(cfg options, out io.Writer) error {
	text := cfg.text
	if strings.TrimSpace(cfg.file) != "" {
		data, err := readInput(cfg.file)
		if err != nil {
			return err
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("input text is empty")
	}

	lex := lexicon.Builtin()
	if strings.TrimSpace(cfg.lexiconPath) != "" {
		var err error
		lex, err = lexicon.FromFile(cfg.lexiconPath)
		if err != nil {
			return fmt.Errorf("load lexicon: %w", err)
		}
	}

	scorer := risk.NewScorer(lex)
	assessment := scorer.Assess(text, risk.Context{
		IterationCount:  cfg.iterations,
		DurationMinutes: cfg.durationMin,
		GroundingCount:  cfg.grounding,
		PriorDepthScore: cfg.prior,
	})

	enc := json.NewEncoder(out)
	if cfg.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(assessment)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
