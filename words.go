package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

//go:embed words.json
var defaultWordPairs []byte

// WordPair is one civilian/undercover pairing. The civilian word goes to
// every civilian, the undercover word is a close-but-different decoy,
// and Mr. White gets nothing at all.
type WordPair struct {
	Civilian   string `json:"civilian"`
	Undercover string `json:"undercover"`
}

// loadWordPairs reads the word-pair list from path, or falls back to the
// embedded set when path is empty.
func loadWordPairs(path string) ([]WordPair, error) {
	data := defaultWordPairs

	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	var pairs []WordPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}

	if len(pairs) == 0 {
		return nil, errors.New("word list is empty")
	}
	for i, p := range pairs {
		if p.Civilian == "" || p.Undercover == "" {
			return nil, fmt.Errorf("word pair %d has an empty word", i)
		}
	}

	return pairs, nil
}
