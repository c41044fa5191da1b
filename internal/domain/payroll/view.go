package payroll

import "github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"

// RecordView is a record joined with its company and, when one matches by
// name, the company's obligation details.
type RecordView struct {
	Record     PayrollRecord
	Company    company.Company
	Obligation *company.ObligationDetails
}

func (v RecordView) ObligationBucket() company.ObligationBucket {
	return v.Obligation.Classify()
}

// ToRecordViewResponse maps a view for the given document set.
func ToRecordViewResponse(v RecordView, set DocumentSet) RecordResponse {
	resp := ToRecordResponse(v.Record, set)
	resp.ObligationBucket = string(v.ObligationBucket())
	return resp
}
