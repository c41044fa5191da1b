package payroll

// DocumentStatus is the completeness classification of a record.
type DocumentStatus string

const (
	DocumentStatusComplete   DocumentStatus = "complete"
	DocumentStatusIncomplete DocumentStatus = "incomplete"
	DocumentStatusNil        DocumentStatus = "nil"
)

// HasDocument reports whether a slot holds a non-blank path.
func HasDocument(r PayrollRecord, slot DocumentSlot) bool {
	return r.DocumentPath(slot) != ""
}

// DocumentCount counts the uploaded required documents of a record.
// all_csv never counts.
func DocumentCount(r PayrollRecord, set DocumentSet) (uploaded, required int) {
	for _, slot := range set.RequiredSlots() {
		required++
		if HasDocument(r, slot) {
			uploaded++
		}
	}
	return uploaded, required
}

// MissingDocuments lists the required slots without a document.
func MissingDocuments(r PayrollRecord, set DocumentSet) []DocumentSlot {
	var missing []DocumentSlot
	for _, slot := range set.RequiredSlots() {
		if !HasDocument(r, slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// AllDocumentsUploaded is true for NIL finalizations regardless of the
// document map, otherwise only when every required slot is present.
func AllDocumentsUploaded(r PayrollRecord, set DocumentSet) bool {
	if r.Status.IsNil() {
		return true
	}
	uploaded, required := DocumentCount(r, set)
	return uploaded == required
}

func DocumentStatusOf(r PayrollRecord, set DocumentSet) DocumentStatus {
	if r.Status.IsNil() {
		return DocumentStatusNil
	}
	if AllDocumentsUploaded(r, set) {
		return DocumentStatusComplete
	}
	return DocumentStatusIncomplete
}
