package core

import "fmt"

// Report is the structured outcome returned to the caller of an import.
type Report struct {
	Message string      `json:"message"`
	BatchID string      `json:"batchId"`
	Summary Summary     `json:"summary"`
	Details []RowDetail `json:"details"`
}

// Summary holds the batch counters. Inserted+Skipped+Failed == Total.
type Summary struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RowDetail is one row of the report.
type RowDetail struct {
	Row        int       `json:"row"`
	Username   string    `json:"username"`
	Status     RowStatus `json:"status"`
	Identifier string    `json:"identifier,omitempty"`
	Email      string    `json:"email,omitempty"`
	Role       Role      `json:"role,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// BuildReport assembles the report for a committed batch.
func BuildReport(batchID string, res *BatchResult) *Report {
	rep := &Report{
		BatchID: batchID,
		Summary: Summary{
			Total:    res.Total,
			Inserted: res.Inserted,
			Skipped:  res.Skipped,
			Failed:   res.Failed,
		},
		Details: make([]RowDetail, 0, len(res.Rows)),
	}

	for _, o := range res.Rows {
		rep.Details = append(rep.Details, RowDetail{
			Row:        o.Row,
			Username:   o.Username,
			Status:     o.Status,
			Identifier: o.Identifier,
			Email:      o.Email,
			Role:       o.Role,
			Reason:     o.Reason,
		})
	}

	rep.Message = summaryMessage(rep.Summary)
	return rep
}

func summaryMessage(s Summary) string {
	switch {
	case s.Total == 0:
		return "No user rows found in file"
	case s.Inserted == s.Total:
		return fmt.Sprintf("Imported %d users", s.Inserted)
	default:
		return fmt.Sprintf("Imported %d of %d users (%d skipped, %d failed)", s.Inserted, s.Total, s.Skipped, s.Failed)
	}
}
