package session

import (
	"strings"
	"sync"
	"time"
)

// OptionIndex is a 0-based choice option position. The letter form A..H is
// produced and parsed only here; every other component deals in typed
// indices or the stored letter string.
type OptionIndex int

// Letter returns the stored answer form for the option, or "" when the
// index is outside A..H.
func (o OptionIndex) Letter() string {
	if o < 0 || int(o) >= maxOptionLetters {
		return ""
	}
	return string(rune('A' + o))
}

// ParseOptionIndex decodes a stored answer value back to an option index.
// Anything that is not exactly one letter in A..H decodes to -1.
func ParseOptionIndex(value string) OptionIndex {
	if len(value) != 1 {
		return -1
	}
	c := value[0]
	if c >= 'a' && c <= 'h' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'H' {
		return -1
	}
	return OptionIndex(c - 'A')
}

const maxOptionLetters = 8

// FlushFunc receives every committed answer write. Implementations hand
// the value to the persistence boundary; re-flushing an identical value
// must be a no-op in effect.
type FlushFunc func(questionIndex int, value string)

// AnswerSheet is the in-memory answer store for one session. It is mutated
// only by the foreground control flow; grading reads a Snapshot.
type AnswerSheet struct {
	mu           sync.Mutex
	values       map[int]string
	lastModified map[int]time.Time
	flush        FlushFunc

	// Staged free-text not yet committed; captured by FlushPending when
	// navigation leaves the question or submission begins.
	pendingIndex int
	pendingText  string
	hasPending   bool
}

// NewAnswerSheet creates an empty sheet. flush may be nil.
func NewAnswerSheet(flush FlushFunc) *AnswerSheet {
	return &AnswerSheet{
		values:       make(map[int]string),
		lastModified: make(map[int]time.Time),
		flush:        flush,
	}
}

// RecordChoice stores the letter form of the selected option. A repeated
// identical selection refreshes last-modified bookkeeping but does not
// flush again.
func (a *AnswerSheet) RecordChoice(questionIndex int, option OptionIndex) error {
	letter := option.Letter()
	if letter == "" {
		return ErrInvalidOption
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastModified[questionIndex] = time.Now()
	if a.values[questionIndex] == letter {
		return nil
	}
	a.values[questionIndex] = letter
	a.doFlush(questionIndex, letter)
	return nil
}

// RecordText stores free text verbatim. Empty or whitespace-only text
// counts as "no answer": the key is cleared and the clear is flushed so
// the persisted copy does not outlive the in-memory one.
func (a *AnswerSheet) RecordText(questionIndex int, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordTextLocked(questionIndex, text)
}

func (a *AnswerSheet) recordTextLocked(questionIndex int, text string) {
	a.lastModified[questionIndex] = time.Now()

	if strings.TrimSpace(text) == "" {
		if _, ok := a.values[questionIndex]; !ok {
			return
		}
		delete(a.values, questionIndex)
		a.doFlush(questionIndex, "")
		return
	}

	if a.values[questionIndex] == text {
		return
	}
	a.values[questionIndex] = text
	a.doFlush(questionIndex, text)
}

// StageText keeps in-progress typing for a free-text question without
// committing it. The next FlushPending commits the staged value.
func (a *AnswerSheet) StageText(questionIndex int, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingIndex = questionIndex
	a.pendingText = text
	a.hasPending = true
}

// FlushPending commits any staged free-text value. Called whenever
// navigation leaves a Translation/Writing question and again on every
// submission path, so typing is never lost to a forced submit.
func (a *AnswerSheet) FlushPending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasPending {
		return
	}
	a.recordTextLocked(a.pendingIndex, a.pendingText)
	a.hasPending = false
	a.pendingText = ""
}

// Value returns the stored answer for the index, if any.
func (a *AnswerSheet) Value(questionIndex int) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.values[questionIndex]
	return v, ok
}

// IsAnswered reports whether a non-empty value is stored for the index.
func (a *AnswerSheet) IsAnswered(questionIndex int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.values[questionIndex]
	return ok
}

// AnsweredCount returns the number of questions with a stored value.
func (a *AnswerSheet) AnsweredCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.values)
}

// Snapshot returns a copy of the stored answers for grading. The graders
// never observe a map that is still being mutated.
func (a *AnswerSheet) Snapshot() map[int]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]string, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

func (a *AnswerSheet) doFlush(questionIndex int, value string) {
	if a.flush != nil {
		a.flush(questionIndex, value)
	}
}
