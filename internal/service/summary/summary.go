package summary

import "github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"

// DocumentCounts counts uploads of one document type across all records
// and within the complete and pending subsets.
type DocumentCounts struct {
	All      int `json:"all"`
	Complete int `json:"complete"`
	Pending  int `json:"pending"`
}

type Summary struct {
	Total       int                                     `json:"total"`
	Nil         int                                     `json:"nil"`
	Finalized   int                                     `json:"finalized"`
	Complete    int                                     `json:"complete"`
	Pending     int                                     `json:"pending"`
	ReadyToFile int                                     `json:"ready_to_file"`
	Documents   map[payroll.DocumentSlot]DocumentCounts `json:"documents"`
}

// Summarize derives the header counts of a record set in one pass. NIL
// records count as finalized but neither complete nor pending.
func Summarize(records []payroll.PayrollRecord, set payroll.DocumentSet) Summary {
	slots := set.RequiredSlots()
	s := Summary{Documents: make(map[payroll.DocumentSlot]DocumentCounts, len(slots))}
	for _, slot := range slots {
		s.Documents[slot] = DocumentCounts{}
	}

	for _, r := range records {
		s.Total++

		isNil := r.Status.IsNil()
		complete := !isNil && payroll.AllDocumentsUploaded(r, set)
		pending := !isNil && !complete

		switch {
		case isNil:
			s.Nil++
		case complete:
			s.Complete++
		default:
			s.Pending++
		}
		if r.Status.IsFinalized() {
			s.Finalized++
		}
		if r.Status.IsFiled() || r.Status.ReadyToFile {
			s.ReadyToFile++
		}

		for _, slot := range slots {
			if !payroll.HasDocument(r, slot) {
				continue
			}
			c := s.Documents[slot]
			c.All++
			if complete {
				c.Complete++
			}
			if pending {
				c.Pending++
			}
			s.Documents[slot] = c
		}
	}
	return s
}

// SummarizeViews summarizes the records behind a filtered view.
func SummarizeViews(views []payroll.RecordView, set payroll.DocumentSet) Summary {
	records := make([]payroll.PayrollRecord, len(views))
	for i, v := range views {
		records[i] = v.Record
	}
	return Summarize(records, set)
}
