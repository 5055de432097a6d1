package metrics

import (
	"sort"

	"recogni/internal/textutil"
	"recogni/internal/transcript"
)

// DefaultTopN is the number of frequent words reported when none is configured.
const DefaultTopN = 10

// Record is the metrics result for one transcript.
type Record = transcript.Metrics

// Engine computes Records from transcript segments.
type Engine struct {
	table PhraseTable
	topN  int
}

// NewEngine returns an engine over table. A non-positive topN falls back to
// DefaultTopN.
func NewEngine(table PhraseTable, topN int) *Engine {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Engine{table: table, topN: topN}
}

// TopN reports the configured top-word limit.
func (e *Engine) TopN() int {
	return e.topN
}

// Phrases returns the engine's phrase table.
func (e *Engine) Phrases() PhraseTable {
	return e.table
}

// Analyze computes metrics for segments. Inverted spans contribute no
// duration and are counted in ClampedSegments.
func (e *Engine) Analyze(segments []transcript.Segment) Record {
	counter := newWordCounter()
	magic := make([]int, len(e.table.entries))
	rec := Record{}

	for _, seg := range segments {
		text := textutil.Normalize(seg.Text)
		tokens := textutil.Fields(text)
		rec.TotalWords += len(tokens)
		for _, token := range tokens {
			counter.add(token)
		}

		if seg.Inverted() {
			rec.ClampedSegments++
		}
		rec.TotalDuration += seg.Duration()

		for i, entry := range e.table.entries {
			magic[i] += entry.matcher.Count(text)
		}
	}

	rec.MagicWordCounts = make(map[string]int, len(magic))
	rec.MagicWordPercentages = make(transcript.PhraseShares, 0, len(magic))
	for i, entry := range e.table.entries {
		rec.MagicWordCounts[entry.root] = magic[i]
	}

	if rec.TotalDuration > 0 && rec.TotalWords > 0 {
		rec.WordsPerMinute = float64(rec.TotalWords) / rec.TotalDuration * 60
		rec.TopWords = counter.mostCommon(e.topN)
		for i, entry := range e.table.entries {
			rec.MagicWordPercentages = append(rec.MagicWordPercentages, transcript.PhraseShare{
				Root:    entry.root,
				Percent: percentOf(magic[i], rec.TotalWords),
			})
		}
		return rec
	}

	rec.TopWords = []transcript.WordCount{}
	for _, entry := range e.table.entries {
		rec.MagicWordPercentages = append(rec.MagicWordPercentages, transcript.PhraseShare{Root: entry.root})
	}
	return rec
}

func percentOf(count, total int) float64 {
	if total <= 0 || count <= 0 {
		return 0
	}
	pct := float64(count) / float64(total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// wordCounter counts tokens and remembers first-seen order for tie breaks.
type wordCounter struct {
	index  map[string]int
	counts []transcript.WordCount
}

func newWordCounter() *wordCounter {
	return &wordCounter{index: make(map[string]int)}
}

func (c *wordCounter) add(word string) {
	if i, ok := c.index[word]; ok {
		c.counts[i].Count++
		return
	}
	c.index[word] = len(c.counts)
	c.counts = append(c.counts, transcript.WordCount{Word: word, Count: 1})
}

func (c *wordCounter) mostCommon(n int) []transcript.WordCount {
	sorted := make([]transcript.WordCount, len(c.counts))
	copy(sorted, c.counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
