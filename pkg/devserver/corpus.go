package devserver

import (
	_ "embed"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

//go:embed corpus.yaml
var defaultCorpus []byte

// Entry is one canned answer.
type Entry struct {
	Keywords          []string                        `yaml:"keywords"`
	Answer            string                          `yaml:"answer"`
	References        []conversation.Reference        `yaml:"references"`
	FollowUpQuestions []conversation.FollowUpQuestion `yaml:"follow_up_questions"`
}

type Corpus struct {
	Entries []Entry `yaml:"entries"`
}

func LoadCorpus(r io.Reader) (*Corpus, error) {
	c := &Corpus{}
	if err := yaml.NewDecoder(r).Decode(c); err != nil {
		return nil, errors.Wrap(err, "decode corpus")
	}
	for i, e := range c.Entries {
		if strings.TrimSpace(e.Answer) == "" {
			return nil, errors.Errorf("corpus entry %d has no answer", i)
		}
	}
	return c, nil
}

// DefaultCorpus returns the embedded corpus.
func DefaultCorpus() *Corpus {
	c, err := LoadCorpus(strings.NewReader(string(defaultCorpus)))
	if err != nil {
		panic(err)
	}
	return c
}

// Match returns the entry sharing the most keywords with question, or nil
// when none matches.
func (c *Corpus) Match(question string) *Entry {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}

	var best *Entry
	bestHits := 0
	for i := range c.Entries {
		hits := 0
		for _, k := range c.Entries[i].Keywords {
			if words[strings.ToLower(k)] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = &c.Entries[i], hits
		}
	}
	return best
}
