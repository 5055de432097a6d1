package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Metrics is the record produced by the metrics engine for one transcript.
type Metrics struct {
	TotalWords           int          `json:"total_words"`
	WordsPerMinute       float64      `json:"words_per_minute"`
	TopWords             []WordCount  `json:"top_10_words"`
	MagicWordPercentages PhraseShares `json:"magic_word_percentages"`

	// Diagnostics kept out of the persisted shape.
	MagicWordCounts map[string]int `json:"-"`
	TotalDuration   float64        `json:"-"`
	ClampedSegments int            `json:"-"`
}

// WordCount pairs a token with its frequency. It encodes as a two element
// JSON array: ["word", 3].
type WordCount struct {
	Word  string
	Count int
}

// MarshalJSON encodes the pair as [word, count]. The word is written
// literally, like segment text.
func (w WordCount) MarshalJSON() ([]byte, error) {
	return marshalNoEscape([]any{w.Word, w.Count})
}

// UnmarshalJSON decodes a [word, count] pair.
func (w *WordCount) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("word count: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("word count: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &w.Word); err != nil {
		return fmt.Errorf("word count word: %w", err)
	}
	if err := json.Unmarshal(raw[1], &w.Count); err != nil {
		return fmt.Errorf("word count count: %w", err)
	}
	return nil
}

// PhraseShare is the percentage of total words matched by one phrase root.
type PhraseShare struct {
	Root    string
	Percent float64
}

// PhraseShares keeps phrase percentages in table order. It encodes as a JSON
// object whose keys follow that order.
type PhraseShares []PhraseShare

// Get returns the percentage for root.
func (p PhraseShares) Get(root string) (float64, bool) {
	for _, share := range p {
		if share.Root == root {
			return share.Percent, true
		}
	}
	return 0, false
}

// Sum adds every percentage.
func (p PhraseShares) Sum() float64 {
	var total float64
	for _, share := range p {
		total += share.Percent
	}
	return total
}

// MarshalJSON encodes the shares as an ordered JSON object.
func (p PhraseShares) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, share := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(share.Root)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(share.Percent)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (p *PhraseShares) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("phrase shares: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		if tok == nil {
			*p = nil
			return nil
		}
		return errors.New("phrase shares: expected object")
	}
	shares := PhraseShares{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("phrase shares key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("phrase shares: non-string key")
		}
		var value float64
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("phrase shares %q: %w", key, err)
		}
		shares = append(shares, PhraseShare{Root: key, Percent: value})
	}
	*p = shares
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
