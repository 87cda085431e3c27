package reporting

import "crm-telephony/internal/calls"

// CallsSummaryRequest requests aggregated call-log metrics over calendar days.
// From and To are inclusive, YYYY-MM-DD.
type CallsSummaryRequest struct {
	From string `json:"from"`
	To   string `json:"to"`

	// EmployeeID optionally restricts the summary to one employee.
	EmployeeID *int64 `json:"employee_id,omitempty"`
}

type CallsSummary struct {
	From string `json:"from"`
	To   string `json:"to"`

	TotalCalls    int `json:"total_calls"`
	AnsweredCalls int `json:"answered_calls"`
	MissedCalls   int `json:"missed_calls"`
	RecordedCalls int `json:"recorded_calls"`

	ByStatus    map[calls.Status]int    `json:"by_status"`
	ByDirection map[calls.Direction]int `json:"by_direction"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	TotalBillableSeconds   int `json:"total_billable_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// AnswerRate is answered / total, 0 when there are no calls.
	AnswerRate float64 `json:"answer_rate"`

	ByEmployee []EmployeeSummary `json:"by_employee"`
	ByDay      []DaySummary      `json:"by_day"`
}

type EmployeeSummary struct {
	EmployeeID      int64 `json:"employee_id"`
	Calls           int   `json:"calls"`
	Answered        int   `json:"answered"`
	BillableSeconds int   `json:"billable_seconds"`
}

type DaySummary struct {
	Date     string `json:"date"`
	Calls    int    `json:"calls"`
	Answered int    `json:"answered"`
}
