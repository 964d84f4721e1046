package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/n0madic/go-bli"
)

type options struct {
	SkipEval bool `long:"skip-eval" description:"only export neighbours, even for pairs with a lexicon"`

	Args struct {
		Manifest string `positional-arg-name:"manifest" description:"YAML manifest listing the language pairs"`
	} `positional-args:"yes" required:"yes"`

	bli.LogOptions
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] manifest.yaml\n\nEvaluates and exports neighbours for every language pair of a manifest."

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger, err := opts.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	manifest, err := bli.LoadManifest(opts.Args.Manifest)
	if err != nil {
		logger.Fatalf("Failed to load manifest: %v", err)
	}
	if opts.SkipEval {
		manifest.SkipEval = true
	}

	results, err := bli.RunBatch(manifest, logger)
	if err != nil {
		logger.Fatalf("Batch run failed after %d pairs: %v", len(results), err)
	}

	for _, res := range results {
		if res.Report == nil {
			fmt.Printf("%s: %d words exported\n", res.Pair, res.Export.Map.Len())
			continue
		}
		fmt.Printf("%s:\n%s\n", res.Pair, res.Report)
	}
}
