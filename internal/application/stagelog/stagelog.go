// Package stagelog logs the end-of-stage summary every pipeline component
// emits.
package stagelog

import (
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Finish stamps the report's elapsed time and logs its row counts and
// warning summary at info level, plus any extra fields.
func Finish(logger logging.Logger, msg string, report *ddi.StageReport, extra ...logging.Field) {
	report.Finish()
	fields := make([]logging.Field, 0, len(extra)+5)
	fields = append(fields,
		logging.Stage(report.Stage),
		logging.Int("input_rows", report.InputRows),
		logging.Rows(report.OutputRows),
		logging.Duration(logging.KeyElapsed, report.Elapsed),
	)
	fields = append(fields, extra...)
	if len(report.Warnings) > 0 {
		fields = append(fields, logging.String("warnings", report.WarningSummary()))
		logging.OrNop(logger).Warn(msg, fields...)
		return
	}
	logging.OrNop(logger).Info(msg, fields...)
}

//Personal.AI order the ending
