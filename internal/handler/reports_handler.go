package handler

import (
	"net/http"

	"github.com/boddenberg/pos-bfa-go/internal/service"

	"go.uber.org/zap"
)

// reportHandler serves GET /v1/reports?date=YYYY-MM-DD&month=M&year=Y.
func reportHandler(svc *service.POSService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports")
		defer span.End()

		q := r.URL.Query()
		report, err := svc.Report(ctx, service.ReportQuery{
			Date:  q.Get("date"),
			Month: q.Get("month"),
			Year:  q.Get("year"),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
