package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// SLAReport is the body of GET /suppliers/{supplierId}/reports/sla.
type SLAReport struct {
	SupplierID    openapi_types.UUID `json:"supplier_id"`
	From          openapi_types.Date `json:"from"`
	To            openapi_types.Date `json:"to"`
	OnTime        int                `json:"on_time"`
	Late          int                `json:"late"`
	NotApplicable int                `json:"not_applicable"`
	InProgress    int                `json:"in_progress"`
	Cancelled     int                `json:"cancelled"`
	OnTimeRate    float64            `json:"on_time_rate"`
}

// GetSLAReport handles GET /suppliers/{supplierId}/reports/sla?from=&to=.
func (s *Server) GetSLAReport(w http.ResponseWriter, r *http.Request) {
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

	sum, err := s.reports.SLASummary(r.Context(), supplierID, from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SLAReport{
		SupplierID:    supplierID,
		From:          openapi_types.Date{Time: from},
		To:            openapi_types.Date{Time: to},
		OnTime:        sum.OnTime,
		Late:          sum.Late,
		NotApplicable: sum.NotApplicable,
		InProgress:    sum.InProgress,
		Cancelled:     sum.Cancelled,
		OnTimeRate:    sum.OnTimeRate(),
	})
}
