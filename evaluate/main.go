package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/n0madic/go-bli"
)

type options struct {
	SourceVectors   string `long:"src-emb" required:"true" description:"source embeddings in word2vec text format"`
	TargetVectors   string `long:"tgt-emb" required:"true" description:"target embeddings in word2vec text format"`
	Lexicon         string `long:"dico-test" required:"true" description:"bilingual test lexicon, one 'source target' pair per line"`
	SourceTransform string `long:"src-mat" description:"alignment matrix applied to the source embeddings"`
	TargetTransform string `long:"tgt-mat" description:"alignment matrix applied to the target embeddings"`

	MaxLoad   int  `long:"maxload" default:"200000" description:"maximum number of vectors read per file, 0 reads all"`
	Center    bool `long:"center" description:"mean-center embeddings before normalising"`
	KLocal    int  `long:"k-local" default:"10" description:"neighbourhood size of the CSLS density"`
	BatchSize int  `long:"batch-size" default:"1024" description:"scoring batch size, 0 sizes from free memory"`
	Workers   int  `long:"workers" description:"parallel density workers, 0 uses every CPU"`

	ReportFile string `long:"report-file" description:"write the precision report to this file"`

	bli.LogOptions
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS]\n\nReports CSLS precision@k of an embedding alignment against a test lexicon."

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

	for _, f := range []string{opts.SourceVectors, opts.TargetVectors, opts.Lexicon} {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			logger.Fatalf("File does not exist: %s", f)
		}
	}

	report, err := bli.Evaluate(bli.Config{
		SourceVectors:   opts.SourceVectors,
		TargetVectors:   opts.TargetVectors,
		Lexicon:         opts.Lexicon,
		SourceTransform: opts.SourceTransform,
		TargetTransform: opts.TargetTransform,
		MaxLoad:         opts.MaxLoad,
		LoadAll:         opts.MaxLoad == 0,
		Center:          opts.Center,
		KLocal:          opts.KLocal,
		BatchSize:       opts.BatchSize,
		Workers:         opts.Workers,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatalf("Evaluation failed: %v", err)
	}

	fmt.Print(report)

	if opts.ReportFile != "" {
		if err := bli.SaveReport(opts.ReportFile, report); err != nil {
			logger.Fatalf("Failed to save report: %v", err)
		}
		logger.Infof("Report written to %s", opts.ReportFile)
	}
}
