package bli

import "github.com/pkg/errors"

var (
	// ErrMalformedVectorFile is returned when a vector file header or data
	// line does not match the declared dimension.
	ErrMalformedVectorFile = errors.New("malformed vector file")

	// ErrMalformedLexiconLine is returned when a lexicon line splits into
	// anything other than two fields.
	ErrMalformedLexiconLine = errors.New("malformed lexicon line")

	// ErrEmptyLexicon is returned when no lexicon pair resolves against the
	// loaded vocabularies. 0/0 is not reported as 0% accuracy.
	ErrEmptyLexicon = errors.New("lexicon has no entries in the loaded vocabularies")
)
