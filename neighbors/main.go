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
	Lexicon         string `long:"dico-test" description:"bilingual lexicon used to flag hits and misses"`
	SourceTransform string `long:"src-mat" description:"alignment matrix applied to the source embeddings"`
	TargetTransform string `long:"tgt-mat" description:"alignment matrix applied to the target embeddings"`
	QueryWords      string `long:"nn-words" description:"restrict queries to the source words listed in this file"`
	Output          string `long:"nns-file" default:"-" description:"neighbour file to write, - for stdout"`

	K         int  `long:"k" default:"3" description:"neighbours exported per source word"`
	MaxLoad   int  `long:"maxload" default:"200000" description:"maximum number of vectors read per file, 0 reads all"`
	Center    bool `long:"center" description:"mean-center embeddings before normalising"`
	KLocal    int  `long:"k-local" default:"10" description:"neighbourhood size of the CSLS density"`
	BatchSize int  `long:"batch-size" default:"1024" description:"scoring batch size, 0 sizes from free memory"`
	Workers   int  `long:"workers" description:"parallel density workers, 0 uses every CPU"`

	bli.LogOptions
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS]\n\nExports the CSLS nearest target words of every source word."

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

	cfg := bli.Config{
		SourceVectors:   opts.SourceVectors,
		TargetVectors:   opts.TargetVectors,
		Lexicon:         opts.Lexicon,
		SourceTransform: opts.SourceTransform,
		TargetTransform: opts.TargetTransform,
		MaxLoad:         opts.MaxLoad,
		LoadAll:         opts.MaxLoad == 0,
		Center:          opts.Center,
		K:               opts.K,
		KLocal:          opts.KLocal,
		BatchSize:       opts.BatchSize,
		Workers:         opts.Workers,
		Logger:          logger,
	}
	if opts.QueryWords != "" {
		words, err := bli.LoadQueryWords(opts.QueryWords)
		if err != nil {
			logger.Fatalf("Failed to load query words: %v", err)
		}
		cfg.QueryWords = words
	}

	export, err := bli.Neighbors(cfg)
	if err != nil {
		logger.Fatalf("Neighbour search failed: %v", err)
	}

	if opts.Output == "-" {
		if err := export.WriteTo(os.Stdout); err != nil {
			logger.Fatalf("Failed to write neighbours: %v", err)
		}
		return
	}
	if err := export.Save(opts.Output); err != nil {
		logger.Fatalf("Failed to save neighbours: %v", err)
	}
	logger.Infof("Neighbours of %d words written to %s", export.Map.Len(), opts.Output)
}
