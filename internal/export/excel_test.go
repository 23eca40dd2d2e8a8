package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/CET-Mate/exam-session-service/internal/models"
)

func testResult(t *testing.T) *models.ExamResult {
	t.Helper()
	sections := []models.SectionScore{
		{Type: models.SectionCloze, Label: "Cloze", Correct: 18, Total: 20, Score: 9},
		{Type: models.SectionReading, Label: "Reading", Correct: 25, Total: 30, Score: 25},
	}
	details := []models.QuestionDetail{
		{Index: 0, Type: models.ClozeChoice, UserAnswer: "A", CorrectAnswer: "A", IsCorrect: true, Explanation: "ex"},
		{Index: 1, Type: models.ClozeChoice, UserAnswer: "B", CorrectAnswer: "C", IsCorrect: false},
		{Index: 60, Type: models.Translation, UserAnswer: "translated text", Explanation: "不错"},
	}
	sectionJSON, err := json.Marshal(sections)
	if err != nil {
		t.Fatalf("marshal sections: %v", err)
	}
	detailJSON, err := json.Marshal(details)
	if err != nil {
		t.Fatalf("marshal details: %v", err)
	}

	return &models.ExamResult{
		ID:               "res-1",
		SessionID:        "sess-1",
		PaperID:          1,
		StudentID:        "student-1",
		SectionScores:    sectionJSON,
		TranslationScore: 12,
		WritingScore:     10,
		TotalScore:       56,
		Grade:            "fail",
		Details:          detailJSON,
		GradedAt:         time.Now(),
	}
}

func TestResultWorkbook(t *testing.T) {
	data, err := ResultWorkbook(testResult(t))
	if err != nil {
		t.Fatalf("ResultWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Summary", "Questions"} {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			t.Fatalf("missing sheet %s", sheet)
		}
	}

	// One detail row per question, after the header.
	rows, err := f.GetRows("Questions")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 detail rows, got %d", len(rows))
	}
	if rows[0][0] != "#" {
		t.Errorf("unexpected header %v", rows[0])
	}
	// Display numbering is 1-based.
	if rows[1][0] != "1" {
		t.Errorf("expected first question numbered 1, got %q", rows[1][0])
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows summary: %v", err)
	}
	if summary[0][0] != "Session" || summary[0][1] != "sess-1" {
		t.Errorf("summary must start with the session row, got %v", summary[0])
	}
}

func TestResultWorkbook_BadDetailJSON(t *testing.T) {
	result := testResult(t)
	result.Details = []byte("{not json")

	if _, err := ResultWorkbook(result); err == nil {
		t.Error("expected error for corrupt detail payload")
	}
}
