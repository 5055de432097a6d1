package textutil

import "testing"

func TestPhraseMatcherCount(t *testing.T) {
	tests := []struct {
		name string
		root string
		text string
		want int
	}{
		{"exact", "obrigado", "obrigado pelo atendimento", 1},
		{"plural", "obrigado", "muito obrigados a todos", 1},
		{"double suffix", "boa", "boas festas e boa noite", 2},
		{"prefix of word", "boa", "uma caboa e boazinha", 0},
		{"multi word root", "por favor", "por favor, aguarde. por favor!", 2},
		{"accented root", "perdão", "perdão, perdãos", 2},
		{"accented neighbour", "boa", "éboa boa", 1},
		{"cedilla root", "agradeço", "eu agradeço a ligação", 1},
		{"punctuation bound", "boa", "boa,boa-boa", 3},
		{"no match", "desculpa", "tudo certo por aqui", 0},
		{"empty text", "boa", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := CompilePhrase(RootPattern(tt.root))
			if err != nil {
				t.Fatalf("CompilePhrase: %v", err)
			}
			if got := m.Count(Normalize(tt.text)); got != tt.want {
				t.Fatalf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCompilePhraseRejectsEmptyMatches(t *testing.T) {
	if _, err := CompilePhrase(""); err == nil {
		t.Fatal("expected error for empty pattern")
	}
	if _, err := CompilePhrase("a*"); err == nil {
		t.Fatal("expected error for pattern matching empty text")
	}
	if _, err := CompilePhrase("("); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestNilMatcherCountsNothing(t *testing.T) {
	var m *PhraseMatcher
	if got := m.Count("boa"); got != 0 {
		t.Fatalf("nil matcher count = %d", got)
	}
}

func TestNormalizeLowercasesAndComposes(t *testing.T) {
	// "perdão" with a combining tilde.
	decomposed := "PERDA\u0303O"
	if got := Normalize(decomposed); got != "perdão" {
		t.Fatalf("Normalize(%q) = %q", decomposed, got)
	}
	if got := Normalize(""); got != "" {
		t.Fatalf("Normalize(empty) = %q", got)
	}
}

func TestFieldsSplitsNormalizedText(t *testing.T) {
	got := Fields(Normalize("  De nada,\tboa\nTARDE "))
	want := []string{"de", "nada,", "boa", "tarde"}
	if len(got) != len(want) {
		t.Fatalf("Fields len = %d (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
