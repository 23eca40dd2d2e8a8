package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/CET-Mate/exam-session-service/internal/models"
)

const (
	summarySheet = "Summary"
	detailSheet  = "Questions"
)

// ResultWorkbook renders a graded result as an xlsx workbook: a summary
// sheet with section and subjective scores, and one detail row per
// question for audit.
func ResultWorkbook(result *models.ExamResult) ([]byte, error) {
	var sections []models.SectionScore
	if err := json.Unmarshal(result.SectionScores, &sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal section scores: %w", err)
	}
	var details []models.QuestionDetail
	if err := json.Unmarshal(result.Details, &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result details: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	if err := writeSummary(f, result, sections); err != nil {
		return nil, err
	}
	if err := writeDetails(f, details); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, result *models.ExamResult, sections []models.SectionScore) error {
	rows := [][]interface{}{
		{"Session", result.SessionID},
		{"Student", result.StudentID},
		{"Graded at", result.GradedAt.Format("2006-01-02 15:04:05")},
		{},
		{"Section", "Correct", "Total", "Score"},
	}
	for _, sec := range sections {
		rows = append(rows, []interface{}{sec.Label, sec.Correct, sec.Total, sec.Score})
	}
	rows = append(rows,
		[]interface{}{"Translation", "", "", result.TranslationScore},
		[]interface{}{"Writing", "", "", result.WritingScore},
		[]interface{}{},
		[]interface{}{"Total", "", "", result.TotalScore},
		[]interface{}{"Grade", result.Grade},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

func writeDetails(f *excelize.File, details []models.QuestionDetail) error {
	if _, err := f.NewSheet(detailSheet); err != nil {
		return fmt.Errorf("failed to create detail sheet: %w", err)
	}

	header := []interface{}{"#", "Type", "Your answer", "Correct answer", "Correct", "Explanation"}
	if err := f.SetSheetRow(detailSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write detail header: %w", err)
	}

	for i, d := range details {
		row := []interface{}{d.Index + 1, string(d.Type), d.UserAnswer, d.CorrectAnswer, d.IsCorrect, d.Explanation}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetSheetRow(detailSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write detail row: %w", err)
		}
	}
	return nil
}
