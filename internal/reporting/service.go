package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"crm-telephony/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
// Implementations read the immutable call_logs table; calls.PostgresRepo and
// calls.MemoryRepo both satisfy it.
type Repository interface {
	ListRange(ctx context.Context, from, to string) ([]calls.Entry, error)
}

type Service struct {
	repo Repository

	// MaxRangeDays bounds a summary request. Zero means unbounded.
	MaxRangeDays int
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return CallsSummary{}, ErrInvalidRequest
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil || to.Before(from) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.MaxRangeDays > 0 && int(to.Sub(from).Hours()/24) >= s.MaxRangeDays {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListRange(ctx, req.From, req.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{
		From:        req.From,
		To:          req.To,
		ByStatus:    map[calls.Status]int{},
		ByDirection: map[calls.Direction]int{},
	}
	perEmployee := map[int64]*EmployeeSummary{}
	perDay := map[string]*DaySummary{}

	for _, c := range rows {
		if req.EmployeeID != nil && (c.EmployeeID == nil || *c.EmployeeID != *req.EmployeeID) {
			continue
		}
		answered := c.Status == calls.StatusAnswered

		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		out.TotalBillableSeconds += c.BillableSeconds
		out.ByStatus[c.Status]++
		out.ByDirection[c.Direction]++
		if c.RecordingURL != "" && answered {
			out.RecordedCalls++
		}
		switch c.Status {
		case calls.StatusAnswered:
			out.AnsweredCalls++
		case calls.StatusNoAnswer, calls.StatusBusy, calls.StatusCancelled:
			if c.Direction == calls.DirectionInbound || c.Direction == calls.DirectionQueue {
				out.MissedCalls++
			}
		}

		day := perDay[c.CallDate]
		if day == nil {
			day = &DaySummary{Date: c.CallDate}
			perDay[c.CallDate] = day
		}
		day.Calls++

		var emp *EmployeeSummary
		if c.EmployeeID != nil {
			emp = perEmployee[*c.EmployeeID]
			if emp == nil {
				emp = &EmployeeSummary{EmployeeID: *c.EmployeeID}
				perEmployee[*c.EmployeeID] = emp
			}
			emp.Calls++
		}
		if answered {
			day.Answered++
			if emp != nil {
				emp.Answered++
				emp.BillableSeconds += c.BillableSeconds
			}
		}
	}

	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
		out.AnswerRate = float64(out.AnsweredCalls) / float64(out.TotalCalls)
	}

	out.ByEmployee = make([]EmployeeSummary, 0, len(perEmployee))
	for _, e := range perEmployee {
		out.ByEmployee = append(out.ByEmployee, *e)
	}
	sort.Slice(out.ByEmployee, func(i, j int) bool { return out.ByEmployee[i].EmployeeID < out.ByEmployee[j].EmployeeID })

	out.ByDay = make([]DaySummary, 0, len(perDay))
	for _, d := range perDay {
		out.ByDay = append(out.ByDay, *d)
	}
	sort.Slice(out.ByDay, func(i, j int) bool { return out.ByDay[i].Date < out.ByDay[j].Date })

	return out, nil
}
