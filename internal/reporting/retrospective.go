package reporting

import (
	"time"
)

// RetrospectiveReport summarizes checkout activity from a set of journal
// entries.
type RetrospectiveReport struct {
	TotalSessions        int
	SuccessfulPayments   int
	FailedPayments       int
	Dismissals           int              // user dismissed the widget
	HostCloses           int              // host called close
	TotalAmountCollected int64            // sum of amounts for SUCCESS entries only
	AmountByCurrency     map[string]int64 // SUCCESS amounts broken down by currency
	ErrorBreakdown       map[string]int   // count of each ErrorCode for FAILED entries
	DateFrom             time.Time
	DateTo               time.Time
	Window               time.Duration // span covered by the entries
}

// RetrospectiveReporter generates retrospective reports from journal entries.
type RetrospectiveReporter struct{}

// NewRetrospectiveReporter creates a new RetrospectiveReporter.
func NewRetrospectiveReporter() *RetrospectiveReporter {
	return &RetrospectiveReporter{}
}

// GenerateRetrospective analyzes a slice of entries and produces a report.
func (rr *RetrospectiveReporter) GenerateRetrospective(entries []Entry) (*RetrospectiveReport, error) {
	report := &RetrospectiveReport{
		AmountByCurrency: make(map[string]int64),
		ErrorBreakdown:   make(map[string]int),
	}
	if len(entries) == 0 {
		return report, nil
	}

	report.DateFrom = entries[0].Timestamp
	report.DateTo = entries[0].Timestamp

	for _, e := range entries {
		report.TotalSessions++

		if e.Timestamp.Before(report.DateFrom) {
			report.DateFrom = e.Timestamp
		}
		if e.Timestamp.After(report.DateTo) {
			report.DateTo = e.Timestamp
		}

		switch e.Outcome {
		case OutcomeSuccess:
			report.SuccessfulPayments++
			report.TotalAmountCollected += e.Amount
			report.AmountByCurrency[e.Currency] += e.Amount
		case OutcomeFailed:
			report.FailedPayments++
			if e.ErrorCode != "" {
				report.ErrorBreakdown[e.ErrorCode]++
			}
		case OutcomeDismissed:
			report.Dismissals++
		case OutcomeClosed:
			report.HostCloses++
		}
	}

	report.Window = report.DateTo.Sub(report.DateFrom)
	return report, nil
}
