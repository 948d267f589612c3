package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// exportHeaders defines the column names written as the first row of any CSV
// or spreadsheet export.
var exportHeaders = []string{
	"order_id", "customer_id", "site_id", "scheduled_day", "slot_label",
	"status", "sla_status", "created_at", "delivered_at",
}

const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportSheet     = "Orders"
)

// ExportRow is the JSON form of one exported order.
type ExportRow struct {
	OrderID      string     `json:"order_id"`
	CustomerID   string     `json:"customer_id"`
	SiteID       string     `json:"site_id"`
	ScheduledDay string     `json:"scheduled_day"`
	SlotLabel    string     `json:"slot_label"`
	Status       string     `json:"status"`
	SLAStatus    *string    `json:"sla_status,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

// ExportOrders handles GET /suppliers/{supplierId}/reports/orders.
// ?from= and ?to= are required; ?status= may repeat to narrow the export.
// Use ?format=csv or ?format=xlsx for a download; default is JSON.
func (s *Server) ExportOrders(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathUUID(r, "supplierId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		badRequest(w, err.Error())
		return
	}
	var statuses []string
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &statuses); err != nil {
		badRequest(w, err.Error())
		return
	}

	want := formatJSON
	if format != nil {
		want = *format
	}
	if want != formatJSON && want != formatCSV && want != formatXLSX {
		badRequest(w, "format must be one of json, csv, xlsx")
		return
	}

	filter := domain.ExportFilter{SupplierID: supplierID, From: from, To: to}
	for _, st := range statuses {
		filter.Statuses = append(filter.Statuses, domain.OrderStatus(st))
	}

	rows, err := s.reports.Export(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	filename := fmt.Sprintf("orders-%s-%s-%s.%s", supplierID,
		from.Format(domain.DayLayout), to.Format(domain.DayLayout), want)

	switch want {
	case formatCSV:
		writeDownload(w, "text/csv", filename, buildCSV(rows))
	case formatXLSX:
		buf, err := buildXLSX(rows)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeDownload(w, xlsxContentType, filename, buf)
	default:
		out := make([]ExportRow, 0, len(rows))
		for _, row := range rows {
			out = append(out, exportRowToResponse(row))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeDownload(w http.ResponseWriter, contentType, filename string, body *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	body.WriteTo(w)
}

// buildCSV encodes rows as CSV with a header line.
func buildCSV(rows []domain.ExportRow) *bytes.Buffer {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	w.Write(exportHeaders)
	for _, r := range rows {
		//nolint:errcheck
		w.Write(exportRecord(r))
	}
	w.Flush()
	return &buf
}

// buildXLSX renders rows into a single-sheet workbook with a bold, frozen
// header row.
func buildXLSX(rows []domain.ExportRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("handler.buildXLSX: new sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("handler.buildXLSX: delete default sheet: %w", err)
	}
	if index, err = f.GetSheetIndex(exportSheet); err != nil {
		return nil, fmt.Errorf("handler.buildXLSX: sheet index: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("handler.buildXLSX: header style: %w", err)
	}

	header := toCells(exportHeaders)
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("handler.buildXLSX: header: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, headerStyle); err != nil {
		return nil, fmt.Errorf("handler.buildXLSX: header style: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("handler.buildXLSX: row %d: %w", i+2, err)
		}
		values := toCells(exportRecord(r))
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("handler.buildXLSX: row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("handler.buildXLSX: freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("handler.buildXLSX: write: %w", err)
	}
	return buf, nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// exportRecord encodes a domain.ExportRow as a flat string slice.
// Nil time pointers are encoded as empty strings.
func exportRecord(r domain.ExportRow) []string {
	return []string{
		r.OrderID,
		r.CustomerID,
		r.SiteID,
		r.ScheduledDay,
		r.SlotLabel,
		r.Status,
		r.SLAStatus,
		r.CreatedAt.UTC().Format(time.RFC3339),
		formatOptionalTime(r.DeliveredAt),
	}
}

func exportRowToResponse(r domain.ExportRow) ExportRow {
	row := ExportRow{
		OrderID:      r.OrderID,
		CustomerID:   r.CustomerID,
		SiteID:       r.SiteID,
		ScheduledDay: r.ScheduledDay,
		SlotLabel:    r.SlotLabel,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		DeliveredAt:  r.DeliveredAt,
	}
	if r.SLAStatus != "" {
		row.SLAStatus = &r.SLAStatus
	}
	return row
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
