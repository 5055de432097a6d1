package transcript

// Segment is one recognized utterance in engine order.
type Segment struct {
	Order int     `json:"order"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"transcription"`
}

// Duration returns End-Start, or zero when the span is inverted.
func (s Segment) Duration() float64 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Inverted reports whether the segment ends before it starts.
func (s Segment) Inverted() bool {
	return s.End < s.Start
}

// Renumber returns a copy of segments with Order set to each position.
func Renumber(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		seg.Order = i
		out[i] = seg
	}
	return out
}
