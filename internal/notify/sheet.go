package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"trdb-estimator/internal/pricing"
	"trdb-estimator/internal/storage"
)

const leadSheet = "Leads"

var leadHeaders = []string{
	"Timestamp", "Name", "Email", "Company", "Phone",
	"Market", "Size", "Unit", "Quality", "Total", "Currency",
	"Action", "Score", "Tier", "Notes", "Source", "User ID",
}

// LeadLog appends captured leads to an xlsx workbook, one row per lead.
// The workbook stands in for the hosted spreadsheet the sales team works
// from.
type LeadLog struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewLeadLog(path string, logger *zap.Logger) *LeadLog {
	return &LeadLog{path: path, logger: logger}
}

// Path returns the workbook location on disk.
func (l *LeadLog) Path() string {
	return l.path
}

// Append writes one lead row, creating the workbook with headers on
// first use.
func (l *LeadLog) Append(lead storage.Lead) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.append(lead); err != nil {
		return fmt.Errorf("%w: lead log: %v", pricing.ErrNotificationFailed, err)
	}

	l.logger.Info("Lead appended to log",
		zap.String("lead_id", lead.ID),
		zap.String("tier", lead.Tier))
	return nil
}

func (l *LeadLog) append(lead storage.Lead) error {
	f, fresh, err := l.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if fresh {
		index, err := f.NewSheet(leadSheet)
		if err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
		f.SetActiveSheet(index)
		for col, header := range leadHeaders {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(leadSheet, cell, header)
		}
		style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		f.SetCellStyle(leadSheet, "A1", "Q1", style)
	}

	rows, err := f.GetRows(leadSheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}
	next := len(rows) + 1

	data := []interface{}{
		lead.CreatedAt.Format("2006-01-02 15:04:05"),
		lead.Name,
		lead.Email,
		lead.Company,
		lead.Phone,
		lead.Market,
		lead.Size,
		lead.Unit,
		lead.Quality,
		lead.Total,
		lead.Currency,
		lead.Action,
		lead.Score,
		lead.Tier,
		lead.Notes,
		lead.Source,
		lead.UserID,
	}
	for col, value := range data {
		cell, _ := excelize.CoordinatesToCellName(col+1, next)
		f.SetCellValue(leadSheet, cell, value)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (l *LeadLog) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(l.path); err == nil {
		f, err := excelize.OpenFile(l.path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to open workbook: %w", err)
		}
		return f, false, nil
	}
	return excelize.NewFile(), true, nil
}
