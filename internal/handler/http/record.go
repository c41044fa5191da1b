package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/cmlabs-hris/filing-tracker-go/internal/handler/http/response"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/validator"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/filter"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/summary"
)

const maxUploadSize = 20 << 20

type RecordHandler interface {
	// Cycles
	OpenCycle(w http.ResponseWriter, r *http.Request)
	SeedCycle(w http.ResponseWriter, r *http.Request)
	ListRecords(w http.ResponseWriter, r *http.Request)
	GetSummary(w http.ResponseWriter, r *http.Request)

	// Lifecycle
	Finalize(w http.ResponseWriter, r *http.Request)
	RevertFinalize(w http.ResponseWriter, r *http.Request)
	File(w http.ResponseWriter, r *http.Request)
	RemoveFiling(w http.ResponseWriter, r *http.Request)

	// Documents
	UploadDocument(w http.ResponseWriter, r *http.Request)
	DeleteDocument(w http.ResponseWriter, r *http.Request)
	DeleteAllDocuments(w http.ResponseWriter, r *http.Request)
	UpdateEmployeeCount(w http.ResponseWriter, r *http.Request)
}

type recordHandlerImpl struct {
	payrollService payroll.PayrollService
	engine         *filter.Engine
	now            func() time.Time
}

func NewRecordHandler(payrollService payroll.PayrollService, engine *filter.Engine) RecordHandler {
	return &recordHandlerImpl{payrollService: payrollService, engine: engine, now: time.Now}
}

// ========== CYCLES ==========

func (h *recordHandlerImpl) OpenCycle(w http.ResponseWriter, r *http.Request) {
	var req payroll.OpenCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.OpenCycle(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll cycle opened", result)
}

func (h *recordHandlerImpl) SeedCycle(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.SeedCycle(r.Context(), chi.URLParam(r, "cycleID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll cycle seeded", result)
}

func (h *recordHandlerImpl) ListRecords(w http.ResponseWriter, r *http.Request) {
	set, views, err := filteredViews(r, h.payrollService, h.engine, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := make([]payroll.RecordResponse, len(views))
	for i, v := range views {
		result[i] = payroll.ToRecordViewResponse(v, set)
	}
	response.SuccessWithMeta(w, result, &response.Meta{TotalItems: int64(len(result))})
}

func (h *recordHandlerImpl) GetSummary(w http.ResponseWriter, r *http.Request) {
	set, views, err := filteredViews(r, h.payrollService, h.engine, h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, summary.SummarizeViews(views, set))
}

// ========== LIFECYCLE ==========

func (h *recordHandlerImpl) Finalize(w http.ResponseWriter, r *http.Request) {
	var req payroll.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	rec, err := h.payrollService.Finalize(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Record finalized", toResponse(r, rec))
}

func (h *recordHandlerImpl) RevertFinalize(w http.ResponseWriter, r *http.Request) {
	rec, err := h.payrollService.RevertFinalize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Finalization reverted", toResponse(r, rec))
}

func (h *recordHandlerImpl) File(w http.ResponseWriter, r *http.Request) {
	var req payroll.FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	rec, err := h.payrollService.File(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Record filed", toResponse(r, rec))
}

func (h *recordHandlerImpl) RemoveFiling(w http.ResponseWriter, r *http.Request) {
	rec, err := h.payrollService.RemoveFiling(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Filing removed", toResponse(r, rec))
}

// ========== DOCUMENTS ==========

func (h *recordHandlerImpl) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			response.BadRequest(w, "Document file is required", nil)
			return
		}
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "Failed to read uploaded file", nil)
		return
	}

	req := payroll.UploadDocumentRequest{
		RecordID:    chi.URLParam(r, "id"),
		Slot:        payroll.DocumentSlot(chi.URLParam(r, "slot")),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	}
	if date := r.FormValue("date"); date != "" {
		parsed, ok := validator.ParseTimestamp(date)
		if !ok {
			response.HandleError(w, validator.ValidationErrors{{Field: "date", Message: "must be YYYY-MM-DD or an ISO-8601 timestamp"}})
			return
		}
		req.Date = parsed
	}

	rec, err := h.payrollService.UploadDocument(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Document uploaded", toSlotResponse(rec, req.Slot))
}

func (h *recordHandlerImpl) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	slot := payroll.DocumentSlot(chi.URLParam(r, "slot"))

	rec, err := h.payrollService.DeleteDocument(r.Context(), chi.URLParam(r, "id"), slot)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Document deleted", toSlotResponse(rec, slot))
}

func (h *recordHandlerImpl) DeleteAllDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.DeleteAllDocuments(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("view"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Documents deleted", result)
}

func (h *recordHandlerImpl) UpdateEmployeeCount(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdateEmployeeCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	rec, err := h.payrollService.UpdateEmployeeCount(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toResponse(r, rec))
}

// toResponse maps a record for the view requested, falling back to the
// preparation set.
func toResponse(r *http.Request, rec payroll.PayrollRecord) payroll.RecordResponse {
	set, err := documentSet(r)
	if err != nil {
		set = payroll.PreparationDocuments
	}
	return payroll.ToRecordResponse(rec, set)
}

// toSlotResponse maps a record for the set slot belongs to.
func toSlotResponse(rec payroll.PayrollRecord, slot payroll.DocumentSlot) payroll.RecordResponse {
	set, ok := payroll.SetForSlot(slot)
	if !ok {
		set = payroll.PreparationDocuments
	}
	return payroll.ToRecordResponse(rec, set)
}

// documentSet resolves the view query parameter. Empty means preparation.
func documentSet(r *http.Request) (payroll.DocumentSet, error) {
	name := r.URL.Query().Get("view")
	if name == "" {
		return payroll.PreparationDocuments, nil
	}
	set, ok := payroll.DocumentSets[name]
	if !ok {
		return payroll.DocumentSet{}, fmt.Errorf("%w: %s", payroll.ErrUnknownDocumentSet, name)
	}
	return set, nil
}

// filteredViews loads the cycle in the URL and applies the filter query.
func filteredViews(r *http.Request, svc payroll.PayrollService, engine *filter.Engine, now time.Time) (payroll.DocumentSet, []payroll.RecordView, error) {
	set, err := documentSet(r)
	if err != nil {
		return payroll.DocumentSet{}, nil, err
	}

	q := r.URL.Query()
	criteria, err := filter.ParseCriteria(q.Get("search"), q.Get("categories"), q.Get("obligations"))
	if err != nil {
		return payroll.DocumentSet{}, nil, err
	}

	cycleID := chi.URLParam(r, "cycleID")
	views, err := svc.ListView(r.Context(), cycleID)
	if err != nil {
		return payroll.DocumentSet{}, nil, err
	}
	return set, engine.Apply(cycleID, views, criteria, now), nil
}
