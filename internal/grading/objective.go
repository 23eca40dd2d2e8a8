package grading

import (
	"github.com/CET-Mate/exam-session-service/internal/models"
	"github.com/CET-Mate/exam-session-service/internal/session"
)

// ObjectiveResult is the deterministic pass over the choice sections. It
// is complete before the subjective pipeline starts.
type ObjectiveResult struct {
	SectionScores []models.SectionScore
	TotalScore    float64
	CorrectCount  int
	WrongCount    int
	Details       []models.QuestionDetail
}

// GradeChoice grades one choice question against a stored answer value.
// It is total: an absent, empty or malformed value is simply wrong, never
// an error.
func GradeChoice(q models.Question, answer string) bool {
	if !q.Type.IsChoice() {
		return false
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return false
	}
	idx := session.ParseOptionIndex(answer)
	return int(idx) == q.CorrectOption
}

// GradeObjective walks every objective section of the paper and tallies
// per-section correct counts and point totals from an answer snapshot.
// Points per item come from the section table, so the grader carries no
// scoring constants of its own.
func GradeObjective(paper *models.ExamPaper, table *session.SectionTable, answers map[int]string) ObjectiveResult {
	var res ObjectiveResult

	for _, sec := range table.Objective() {
		score := models.SectionScore{
			Type:  sec.Type,
			Label: sec.Label,
			Total: sec.Len(),
		}

		for i := sec.Start; i < sec.End; i++ {
			q := paper.Questions[i]
			answer := answers[i]
			correct := GradeChoice(q, answer)

			if correct {
				score.Correct++
				res.CorrectCount++
			} else {
				res.WrongCount++
			}

			res.Details = append(res.Details, models.QuestionDetail{
				Index:         q.Index,
				Type:          q.Type,
				UserAnswer:    answer,
				CorrectAnswer: session.OptionIndex(q.CorrectOption).Letter(),
				IsCorrect:     correct,
				Explanation:   q.Explanation,
			})
		}

		score.Score = float64(score.Correct) * sec.PointsPerItem
		res.TotalScore += score.Score
		res.SectionScores = append(res.SectionScores, score)
	}

	return res
}
