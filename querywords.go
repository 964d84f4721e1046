package bli

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadQueryWords reads a restricted query word list: one word per line,
// surrounding whitespace trimmed, blank lines and repeats dropped.
func ReadQueryWords(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(transform.NewReader(r, textunicode.UTF8.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	seen := make(map[string]struct{})
	var words []string
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read query words")
	}
	return words, nil
}

// LoadQueryWords reads a query word list from disk.
func LoadQueryWords(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open query words")
	}
	defer f.Close()

	words, err := ReadQueryWords(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load query words %q", filename)
	}
	return words, nil
}

// SaveQueryWords writes one word per line, atomically.
func SaveQueryWords(filename string, words []string) error {
	return writeFileAtomic(filename, func(w io.Writer) error {
		for _, word := range words {
			if _, err := io.WriteString(w, word+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// WordFreq is a word and the number of times it was seen.
type WordFreq struct {
	Word string
	Freq int
}

// TokenizerOptions controls how CountWords splits text into candidate queries.
type TokenizerOptions struct {
	Lowercase    bool // fold case, as most embedding vocabularies do
	KeepHyphens  bool // keep "well-known" as one token
	MinFreq      int  // drop words seen fewer times; <= 0 means 1
	DropNumerals bool // drop tokens made only of digits and separators
}

// DefaultTokenizerOptions matches the tokenisation of fastText style vocabularies.
func DefaultTokenizerOptions() TokenizerOptions {
	return TokenizerOptions{
		Lowercase:    true,
		KeepHyphens:  true,
		MinFreq:      1,
		DropNumerals: true,
	}
}

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	urlRe      = regexp.MustCompile(`^(https?|ftp)://\S+$`)
	emailRe    = regexp.MustCompile(`^[\pL\pN._%+-]+@[\pL\pN.-]+\.\pL{2,}$`)
	numeralRe  = regexp.MustCompile(`^[\pN.,:/-]+$`)
	hyphenRe   = regexp.MustCompile(`(\pL)-(\pL)`)
	quoteReplx = strings.NewReplacer(
		"“", "\"",
		"”", "\"",
		"‘", "'",
		"’", "'",
		"–", "-",
		"—", " ",
		"…", " ",
	)
)

// CountWords tokenises text into words usable as restricted queries and
// returns them by descending frequency, ties broken alphabetically.
func CountWords(r io.Reader, opts TokenizerOptions) ([]WordFreq, error) {
	if opts.MinFreq <= 0 {
		opts.MinFreq = 1
	}

	scanner := bufio.NewScanner(transform.NewReader(r, textunicode.UTF8.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

	counts := make(map[string]int)
	for scanner.Scan() {
		for _, token := range tokenizeLine(scanner.Text(), opts) {
			counts[token]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read text")
	}

	var result []WordFreq
	for word, freq := range counts {
		if freq >= opts.MinFreq {
			result = append(result, WordFreq{Word: word, Freq: freq})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Freq != result[j].Freq {
			return result[i].Freq > result[j].Freq
		}
		return result[i].Word < result[j].Word
	})
	return result, nil
}

func tokenizeLine(line string, opts TokenizerOptions) []string {
	line = quoteReplx.Replace(spaceRe.ReplaceAllString(line, " "))
	if !opts.KeepHyphens {
		line = hyphenRe.ReplaceAllString(line, "$1 $2")
	}
	if opts.Lowercase {
		line = strings.ToLower(line)
	}

	var tokens []string
	for _, field := range strings.Fields(line) {
		if urlRe.MatchString(field) || emailRe.MatchString(field) {
			continue
		}

		token := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		// possessive endings are not part of the vocabulary entry
		token = strings.TrimSuffix(token, "'s")
		if token == "" || !hasLetterOrDigit(token) {
			continue
		}
		if opts.DropNumerals && numeralRe.MatchString(token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Words returns just the words of freqs, keeping their order.
func Words(freqs []WordFreq) []string {
	words := make([]string, len(freqs))
	for i, wf := range freqs {
		words[i] = wf.Word
	}
	return words
}
