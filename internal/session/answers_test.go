package session

import (
	"testing"
)

func TestOptionIndex_Letter(t *testing.T) {
	tests := []struct {
		name   string
		option OptionIndex
		want   string
	}{
		{name: "first", option: 0, want: "A"},
		{name: "middle", option: 3, want: "D"},
		{name: "last", option: 7, want: "H"},
		{name: "negative", option: -1, want: ""},
		{name: "past last", option: 8, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.option.Letter(); got != tt.want {
				t.Errorf("Letter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseOptionIndex(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  OptionIndex
	}{
		{name: "upper", value: "A", want: 0},
		{name: "lower", value: "d", want: 3},
		{name: "last", value: "H", want: 7},
		{name: "empty", value: "", want: -1},
		{name: "past range", value: "I", want: -1},
		{name: "multi char", value: "AB", want: -1},
		{name: "digit", value: "1", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseOptionIndex(tt.value); got != tt.want {
				t.Errorf("ParseOptionIndex(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestOptionIndex_RoundTrip(t *testing.T) {
	for i := OptionIndex(0); int(i) < maxOptionLetters; i++ {
		if got := ParseOptionIndex(i.Letter()); got != i {
			t.Errorf("round trip for %d produced %d", i, got)
		}
	}
}

func TestAnswerSheet_RecordChoice(t *testing.T) {
	var flushes []string
	sheet := NewAnswerSheet(func(index int, value string) {
		flushes = append(flushes, value)
	})

	if err := sheet.RecordChoice(0, 1); err != nil {
		t.Fatalf("RecordChoice: %v", err)
	}
	if v, ok := sheet.Value(0); !ok || v != "B" {
		t.Errorf("expected stored B, got %q", v)
	}

	// Same selection again: bookkeeping only, no second flush.
	if err := sheet.RecordChoice(0, 1); err != nil {
		t.Fatalf("RecordChoice repeat: %v", err)
	}
	if len(flushes) != 1 {
		t.Errorf("repeated identical choice must not re-flush, got %d flushes", len(flushes))
	}

	// Changing the selection overwrites and flushes.
	if err := sheet.RecordChoice(0, 2); err != nil {
		t.Fatalf("RecordChoice change: %v", err)
	}
	if v, _ := sheet.Value(0); v != "C" {
		t.Errorf("expected overwrite to C, got %q", v)
	}
	if len(flushes) != 2 {
		t.Errorf("expected 2 flushes, got %d", len(flushes))
	}

	if err := sheet.RecordChoice(0, -1); err != ErrInvalidOption {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}
}

func TestAnswerSheet_RecordText_ClearsOnEmpty(t *testing.T) {
	type flush struct {
		index int
		value string
	}
	var flushes []flush
	sheet := NewAnswerSheet(func(index int, value string) {
		flushes = append(flushes, flush{index, value})
	})

	sheet.RecordText(5, "my translation")
	if !sheet.IsAnswered(5) {
		t.Fatal("expected question 5 answered")
	}

	// Whitespace-only counts as no answer and flushes the clear.
	sheet.RecordText(5, "   \n\t")
	if sheet.IsAnswered(5) {
		t.Error("whitespace-only text must clear the answer")
	}
	if len(flushes) != 2 || flushes[1].value != "" {
		t.Errorf("expected a clear flush, got %v", flushes)
	}

	// Clearing an already-absent answer does nothing.
	sheet.RecordText(5, "")
	if len(flushes) != 2 {
		t.Errorf("clearing an empty slot must not flush, got %d flushes", len(flushes))
	}
}

func TestAnswerSheet_RecordText_IdenticalValue(t *testing.T) {
	var flushes int
	sheet := NewAnswerSheet(func(int, string) { flushes++ })

	sheet.RecordText(5, "same text")
	sheet.RecordText(5, "same text")
	if flushes != 1 {
		t.Errorf("identical re-record must not re-flush, got %d", flushes)
	}
}

func TestAnswerSheet_StageAndFlushPending(t *testing.T) {
	sheet := NewAnswerSheet(nil)

	sheet.StageText(6, "draft essay")
	if sheet.IsAnswered(6) {
		t.Fatal("staged text must not be visible before FlushPending")
	}

	sheet.FlushPending()
	if v, _ := sheet.Value(6); v != "draft essay" {
		t.Errorf("expected committed draft, got %q", v)
	}

	// FlushPending with nothing staged is a no-op.
	sheet.FlushPending()
	if sheet.AnsweredCount() != 1 {
		t.Errorf("expected 1 answer, got %d", sheet.AnsweredCount())
	}
}

func TestAnswerSheet_Snapshot_IsCopy(t *testing.T) {
	sheet := NewAnswerSheet(nil)
	sheet.RecordChoice(0, 0)
	sheet.RecordText(5, "text")

	snap := sheet.Snapshot()
	if len(snap) != 2 || snap[0] != "A" || snap[5] != "text" {
		t.Fatalf("unexpected snapshot %v", snap)
	}

	snap[0] = "Z"
	if v, _ := sheet.Value(0); v != "A" {
		t.Error("mutating the snapshot must not touch the sheet")
	}
}
