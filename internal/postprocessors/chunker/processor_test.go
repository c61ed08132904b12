package chunker

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/normalisers/plaintext"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if DefaultChunkSize != 1000 {
			t.Errorf("expected default 1000, got %d", DefaultChunkSize)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.ChunkSize() != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.ChunkSize())
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithChunkSize(-3))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestChunk_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\n", " \t \n \n"} {
		if got := Chunk(input, 40); len(got) != 0 {
			t.Errorf("Chunk(%q) = %q, want empty", input, got)
		}
	}
}

func TestChunk_Example(t *testing.T) {
	input := "Paragraph one.\n\nParagraph two is much longer than the limit and should be split into sentences. " +
		"It has three sentences. Here is the third."

	want := []string{
		"Paragraph one.",
		"Paragraph two is much longer than the limit and should be split into sentences.",
		"It has three sentences.",
		"Here is the third.",
	}

	got := Chunk(input, 40)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() =\n%q\nwant\n%q", got, want)
	}
}

func TestChunk_PacksParagraphs(t *testing.T) {
	input := "Alpha.\n\nBeta.\n\nGamma is here."

	got := Chunk(input, 20)
	want := []string{"Alpha. Beta.", "Gamma is here."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestChunk_ExactLimitNotSplit(t *testing.T) {
	para := strings.Repeat("a", 39) + "."
	if utf8.RuneCountInString(para) != 40 {
		t.Fatal("fixture must be 40 characters")
	}

	got := Chunk(para, 40)
	if len(got) != 1 || got[0] != para {
		t.Errorf("expected one chunk of length 40, got %q", got)
	}

	got = Chunk("Hi.\n\n"+para, 40)
	if len(got) != 2 || got[1] != para {
		t.Errorf("expected exact paragraph in its own chunk, got %q", got)
	}
}

func TestChunk_OversizedSentenceEmittedVerbatim(t *testing.T) {
	long := "This single sentence is far longer than the configured limit of twenty characters."
	input := "Short one. " + long + " Tail."

	got := Chunk(input, 20)
	found := false
	for _, c := range got {
		if c == long {
			found = true
		}
	}
	if !found {
		t.Errorf("expected oversized sentence as its own chunk, got %q", got)
	}
}

func TestChunk_NewlinesInsideParagraphCollapsed(t *testing.T) {
	got := Chunk("line one\nline   two\n\n\tnext", 1000)
	want := []string{"line one line two next"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestChunk_CountsCharactersNotBytes(t *testing.T) {
	// 10 runes, 30 bytes
	para := strings.Repeat("日", 9) + "。"
	got := Chunk(para, 10)
	if len(got) != 1 {
		t.Errorf("expected 1 chunk, got %d: %q", len(got), got)
	}
}

func TestChunk_NonPositiveLimitUsesDefault(t *testing.T) {
	text := strings.Repeat("word ", 150) // 749 characters
	if got := Chunk(text, 0); len(got) != 1 {
		t.Errorf("expected 1 chunk with default limit, got %d", len(got))
	}
}

func TestChunk_Properties(t *testing.T) {
	inputs := []string{
		"Paragraph one.\n\nParagraph two is much longer than the limit and should be split into sentences. It has three sentences. Here is the third.",
		"No terminators at all just a long run of words that keeps going well past any sensible limit without stopping",
		"Q? A! Yes. No... Maybe?! \"Quoted.\" (Aside.) End",
		strings.Repeat("Short sentence. ", 40) + "\n\n\n" + strings.Repeat("Another one here! ", 25),
		"\x00ctrl\x07 chars\r\n\r\nand\tTabs.   Spaces   everywhere.  ",
		"v1.2.3 is a version. e.g. this is not a break. Real end.",
	}

	for _, limit := range []int{10, 25, 40, 100, 1000} {
		for _, raw := range inputs {
			text := plaintext.Clean(raw)
			chunks := Chunk(text, limit)

			// No content loss: non-whitespace characters survive in order.
			want := strings.Join(strings.Fields(text), "")
			got := strings.Join(strings.Fields(strings.Join(chunks, " ")), "")
			if got != want {
				t.Errorf("limit %d: content mismatch\n got %q\nwant %q", limit, got, want)
			}

			for _, c := range chunks {
				if c == "" {
					t.Errorf("limit %d: empty chunk", limit)
				}
				if c != plaintext.Collapse(c) {
					t.Errorf("limit %d: chunk not normalised: %q", limit, c)
				}
				if utf8.RuneCountInString(c) > limit && len(splitSentences(c)) != 1 {
					t.Errorf("limit %d: oversized chunk is not a single sentence: %q", limit, c)
				}
			}
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"No terminator", []string{"No terminator"}},
		{"Wait... what?! Ok.", []string{"Wait...", "what?!", "Ok."}},
		{`He said "Stop." Then left.`, []string{`He said "Stop."`, "Then left."}},
		{"Version 1.2 shipped. Done.", []string{"Version 1.2 shipped.", "Done."}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := splitSentences(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := splitParagraphs("a\nb\n\nc\n   \n\nd")
	want := []string{"a\nb", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitParagraphs() = %q, want %q", got, want)
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithChunkSize(40))
	doc := &domain.Document{
		ID:      "doc-1",
		Content: "Paragraph one.\n\nParagraph two is much longer than the limit and should be split into sentences. It has three sentences. Here is the third.",
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	ids := make(map[string]bool)
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.DocumentID != "doc-1" {
			t.Errorf("chunk %d has document %q", i, c.DocumentID)
		}
		if c.ID == "" || ids[c.ID] {
			t.Errorf("chunk %d has missing or duplicate ID %q", i, c.ID)
		}
		ids[c.ID] = true
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	chunks, err := New().Process(context.Background(), &domain.Document{ID: "d"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}
