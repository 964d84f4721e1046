package main

import (
	"fmt"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/n0madic/go-bli"
)

type options struct {
	Input        string `long:"input" required:"true" description:"text to collect words from, - for stdin"`
	Output       string `long:"output" default:"-" description:"query word list to write, - for stdout"`
	NoLowercase  bool   `long:"no-lowercase" description:"keep the original case"`
	SplitHyphens bool   `long:"split-hyphens" description:"split hyphenated words"`
	KeepNumerals bool   `long:"keep-numerals" description:"keep tokens made of digits"`
	MinFreq      int    `long:"min-freq" default:"1" description:"minimum word frequency to include"`
	Top          int    `long:"top" description:"keep only the most frequent words, 0 keeps all"`
	ShowFreqs    bool   `long:"show-freqs" description:"write 'word frequency' lines instead of a word list"`

	bli.LogOptions
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS]\n\nBuilds a restricted query word list from a text corpus."

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

	var input io.ReadCloser = os.Stdin
	if opts.Input != "-" {
		input, err = os.Open(opts.Input)
		if err != nil {
			logger.Fatalf("Failed to open input file: %v", err)
		}
	}

	freqs, err := bli.CountWords(input, bli.TokenizerOptions{
		Lowercase:    !opts.NoLowercase,
		KeepHyphens:  !opts.SplitHyphens,
		MinFreq:      opts.MinFreq,
		DropNumerals: !opts.KeepNumerals,
	})
	input.Close()
	if err != nil {
		logger.Fatalf("Failed to read input: %v", err)
	}
	if opts.Top > 0 && len(freqs) > opts.Top {
		freqs = freqs[:opts.Top]
	}
	logger.WithField("action", "count_words").Infof("%d query words", len(freqs))

	if opts.ShowFreqs {
		for _, wf := range freqs {
			fmt.Printf("%s %d\n", wf.Word, wf.Freq)
		}
		return
	}

	words := bli.Words(freqs)
	if opts.Output == "-" {
		for _, w := range words {
			fmt.Println(w)
		}
		return
	}
	if err := bli.SaveQueryWords(opts.Output, words); err != nil {
		logger.Fatalf("Failed to save query words: %v", err)
	}
}
