package transaction

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
)

const (
	exportSheet    = "المعاملات"
	exportMaxRows  = 5000
	exportPageSize = 500
	exportDateTime = "2006-01-02 15:04"
)

var exportHeaders = []interface{}{
	"رقم التتبع", "نوع المعاملة", "الدائرة", "المواطن", "الحالة", "الأولوية",
	"تاريخ التقديم", "تاريخ الإكمال", "الموظف المسؤول", "تاريخ الإنشاء",
}

// Export writes the caller's visible transactions as an XLSX workbook.
func (s *Service) Export(ctx context.Context, actor user.Actor, q ListQuery, w io.Writer) error {
	if !actor.Role.IsStaff() {
		return internal.ErrForbidden
	}

	rows, err := s.collectForExport(ctx, actor, q)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Error("failed to close workbook", "error", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetView(exportSheet, 0, &excelize.ViewOptions{RightToLeft: boolPtr(true)}); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", "J1", style); err != nil {
		return err
	}

	for i, t := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(t)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 24)
	_ = f.SetColWidth(exportSheet, "B", "D", 28)
	_ = f.SetColWidth(exportSheet, "E", "J", 18)

	return f.Write(w)
}

// ExportFileName is the attachment name for an export made at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("transactions_%s.xlsx", now.Format("2006-01-02"))
}

func (s *Service) collectForExport(ctx context.Context, actor user.Actor, q ListQuery) ([]*Transaction, error) {
	var out []*Transaction
	for page := 1; len(out) < exportMaxRows; page++ {
		batch, total, err := s.List(ctx, actor, ListQuery{
			Page:         page,
			Limit:        exportPageSize,
			Status:       q.Status,
			DepartmentID: q.DepartmentID,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < exportPageSize || int64(len(out)) >= total {
			break
		}
	}
	if len(out) > exportMaxRows {
		out = out[:exportMaxRows]
	}
	return out, nil
}

func exportRow(t *Transaction) []interface{} {
	assigned := ""
	if t.AssignedToName != nil {
		assigned = *t.AssignedToName
	}
	return []interface{}{
		t.TrackingNumber,
		t.TransactionTypeName,
		t.DepartmentName,
		t.CitizenName,
		t.Status.Label(),
		string(t.Priority),
		formatTime(t.SubmissionDate),
		formatTime(t.CompletionDate),
		assigned,
		t.CreatedAt.Format(exportDateTime),
	}
}

func formatTime(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.Format(exportDateTime)
}

func boolPtr(b bool) *bool { return &b }
