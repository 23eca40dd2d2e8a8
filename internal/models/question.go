package models

type QuestionType string

const (
	ClozeChoice   QuestionType = "cloze_choice"
	ReadingChoice QuestionType = "reading_choice"
	NewTypeChoice QuestionType = "new_type_choice"
	Translation   QuestionType = "translation"
	Writing       QuestionType = "writing"
)

// IsChoice reports whether the type carries a fixed set of options with a
// single correct one.
func (t QuestionType) IsChoice() bool {
	switch t {
	case ClozeChoice, ReadingChoice, NewTypeChoice:
		return true
	}
	return false
}

// IsSubjective reports whether the type is free text graded by the AI
// collaborator.
func (t QuestionType) IsSubjective() bool {
	return t == Translation || t == Writing
}

// NoCorrectOption is the CorrectOption sentinel for free-text questions.
const NoCorrectOption = -1

// MaxOptions bounds the option list; letters A..H.
const MaxOptions = 8

// Question is one item of an exam paper. Index is the stable 0-based
// position inside the paper and never changes for the lifetime of a
// session.
type Question struct {
	Index         int          `json:"index"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	CorrectOption int          `json:"correct_option"` // NoCorrectOption for free-text types
	Explanation   string       `json:"explanation"`

	// Subjective payloads. ReferenceText is the source passage for
	// translation items, TopicText the prompt for writing items.
	ReferenceText string `json:"reference_text,omitempty"`
	TopicText     string `json:"topic_text,omitempty"`
}

type SectionType string

const (
	SectionCloze       SectionType = "cloze"
	SectionReading     SectionType = "reading"
	SectionNewType     SectionType = "new_type"
	SectionTranslation SectionType = "translation"
	SectionWriting     SectionType = "writing"
)

// Section is a contiguous half-open index range [Start, End) of questions
// sharing one question type and one scoring rule. For objective sections
// PointsPerItem applies per question; for subjective sections MaxPoints is
// the weight of the single free-text item.
type Section struct {
	Type          SectionType  `json:"type"`
	Label         string       `json:"label"`
	QuestionType  QuestionType `json:"question_type"`
	Start         int          `json:"start"`
	End           int          `json:"end"`
	PointsPerItem float64      `json:"points_per_item"`
	MaxPoints     float64      `json:"max_points"`
}

// Contains reports whether index falls inside the section range.
func (s Section) Contains(index int) bool {
	return index >= s.Start && index < s.End
}

// Len returns the number of questions in the section.
func (s Section) Len() int {
	return s.End - s.Start
}

// ExamPaper is the ordered, fixed question list plus its section table,
// supplied at session start. The engine never mutates it.
type ExamPaper struct {
	ID        uint       `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	Sections  []Section  `json:"sections"`

	// Duration of the exam in seconds.
	Duration int `json:"duration"`
}

// TotalQuestions returns the number of questions on the paper.
func (p *ExamPaper) TotalQuestions() int {
	return len(p.Questions)
}
