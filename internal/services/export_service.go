package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/xuri/excelize/v2"
)

type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
)

// ExportFile is a rendered export ready to be streamed to the client.
type ExportFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

var resultHeaders = []string{
	"Attempt ID", "User ID", "Graded At", "Earned Points", "Total Points", "Percentage", "Result",
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ===== EXPORT OPERATIONS =====

func (s *exportService) ExportQuizResults(ctx context.Context, quizID string, format ExportFormat, principal models.Principal) (*ExportFile, error) {
	if !principal.CanReviewOthers() {
		return nil, NewPermissionError(principal.UserID, quizID, "quiz", "export_results", "only teachers and admins export results")
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	records, err := s.repo.Result().ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	s.logger.Info("Exporting quiz results", "quiz_id", quizID, "format", format, "rows", len(records))

	base := fmt.Sprintf("quiz-%s-results", quiz.ID)
	switch format {
	case ExportFormatCSV:
		data, err := resultsToCSV(records)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case ExportFormatXLSX, "":
		data, err := resultsToExcel(quiz, records)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func resultRow(rec *models.QuizResultRecord) []string {
	outcome := "Fail"
	if rec.Passed {
		outcome = "Pass"
	}
	return []string{
		rec.AttemptID,
		rec.UserID,
		rec.GradedAt.UTC().Format(time.RFC3339),
		strconv.FormatFloat(rec.EarnedPoints, 'f', -1, 64),
		strconv.FormatFloat(rec.TotalPoints, 'f', -1, 64),
		strconv.Itoa(rec.Percentage),
		outcome,
	}
}

func resultsToCSV(records []*models.QuizResultRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(resultHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(resultRow(rec)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

func resultsToExcel(quiz *models.Quiz, records []*models.QuizResultRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for i, header := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, rec := range records {
		outcome := "Fail"
		if rec.Passed {
			outcome = "Pass"
		}
		row := []interface{}{
			rec.AttemptID,
			rec.UserID,
			rec.GradedAt.UTC().Format("2006-01-02 15:04:05"),
			rec.EarnedPoints,
			rec.TotalPoints,
			rec.Percentage,
			outcome,
		}
		for colIndex, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	passed := 0
	for _, rec := range records {
		if rec.Passed {
			passed++
		}
	}
	f.SetCellValue(summary, "A1", "Quiz")
	f.SetCellValue(summary, "B1", quiz.Title)
	f.SetCellValue(summary, "A2", "Passing Score")
	f.SetCellValue(summary, "B2", quiz.PassingScore)
	f.SetCellValue(summary, "A3", "Graded Attempts")
	f.SetCellValue(summary, "B3", len(records))
	f.SetCellValue(summary, "A4", "Passed")
	f.SetCellValue(summary, "B4", passed)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
