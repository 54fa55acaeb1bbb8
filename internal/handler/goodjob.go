package handler

import (
	"net/http"
	"time"

	"github.com/forgo/goodjobs/internal/middleware"
	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/service"
)

// GoodJobHandler handles GoodJob and transfer endpoints
type GoodJobHandler struct {
	ledgerService *service.LedgerService
}

// NewGoodJobHandler creates a new GoodJob handler
func NewGoodJobHandler(ledgerService *service.LedgerService) *GoodJobHandler {
	return &GoodJobHandler{ledgerService: ledgerService}
}

func goodJobLinks(id int64) map[string]string {
	base := "/api/goodjobs/" + itoa(id)
	return map[string]string{
		"self":         base,
		"lastTransfer": base + "/transfers/last",
	}
}

// List handles GET /api/goodjobs?includeTransfers=
func (h *GoodJobHandler) List(w http.ResponseWriter, r *http.Request) {
	includeTransfers, pd := queryBool(r, "includeTransfers")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	jobs, err := h.ledgerService.ListGoodJobs(r.Context(), includeTransfers)
	if err != nil {
		writeServiceError(w, r, err, "list goodjobs")
		return
	}
	WriteCollection(w, http.StatusOK, toGoodJobResponses(jobs), len(jobs), map[string]string{
		"self":     "/api/goodjobs",
		"transfer": "/api/goodjobs/transfer",
	})
}

// CreateGoodJobRequest is the admin mint body. Both fields are optional.
type CreateGoodJobRequest struct {
	GeneratedDate  *time.Time `json:"generatedDate"`
	InitialOwnerID *int64     `json:"initialOwnerId"`
}

// Create handles POST /api/goodjobs (admin)
func (h *GoodJobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGoodJobRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	actor := service.ActorFromClaims(middleware.GetClaims(r.Context()))
	job, err := h.ledgerService.CreateGoodJob(r.Context(), actor, service.CreateGoodJobRequest{
		GeneratedDate:  req.GeneratedDate,
		InitialOwnerID: req.InitialOwnerID,
	})
	if err != nil {
		writeServiceError(w, r, err, "create goodjob")
		return
	}

	w.Header().Set("Location", "/api/goodjobs/"+itoa(job.ID))
	WriteData(w, http.StatusCreated, toGoodJobResponse(job), goodJobLinks(job.ID))
}

// TransferRequest is the transfer body. goodJobId and fromUserId may be
// omitted. A never-received GoodJob is then chosen first, then one received
// twice or more with the oldest first receipt; with neither the call fails.
type TransferRequest struct {
	GoodJobID  *int64 `json:"goodJobId"`
	FromUserID *int64 `json:"fromUserId"`
	ToUserID   int64  `json:"toUserId"`
}

// TransferResultResponse pairs the new ledger entry with the resolved new owner
type TransferResultResponse struct {
	Transfer     TransferResponse `json:"transfer"`
	CurrentOwner *model.UserRef   `json:"currentOwner"`
}

// Transfer handles POST /api/goodjobs/transfer
func (h *GoodJobHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	actor := service.ActorFromClaims(middleware.GetClaims(r.Context()))
	result, err := h.ledgerService.Transfer(r.Context(), actor, service.TransferRequest{
		GoodJobID:  req.GoodJobID,
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
	})
	if err != nil {
		writeServiceError(w, r, err, "transfer goodjob")
		return
	}

	WriteData(w, http.StatusCreated, TransferResultResponse{
		Transfer:     toTransferResponse(result.Transfer),
		CurrentOwner: result.CurrentOwner,
	}, goodJobLinks(result.Transfer.GoodJobID))
}

// Get handles GET /api/goodjobs/{id}?includeTransfers=
func (h *GoodJobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, pd := pathID(r, "id")
	if pd != nil {
		WriteError(w, pd)
		return
	}
	includeTransfers, pd := queryBool(r, "includeTransfers")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	job, err := h.ledgerService.GetGoodJob(r.Context(), id, includeTransfers)
	if err != nil {
		writeServiceError(w, r, err, "get goodjob")
		return
	}
	WriteData(w, http.StatusOK, toGoodJobResponse(job), goodJobLinks(job.ID))
}

// Delete handles DELETE /api/goodjobs/{id} (admin). The deleted GoodJob is
// returned.
func (h *GoodJobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, pd := pathID(r, "id")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	actor := service.ActorFromClaims(middleware.GetClaims(r.Context()))
	job, err := h.ledgerService.DeleteGoodJob(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, err, "delete goodjob")
		return
	}
	WriteData(w, http.StatusOK, toGoodJobResponse(job), nil)
}

// LastTransfer handles GET /api/goodjobs/{id}/transfers/last
func (h *GoodJobHandler) LastTransfer(w http.ResponseWriter, r *http.Request) {
	id, pd := pathID(r, "id")
	if pd != nil {
		WriteError(w, pd)
		return
	}

	transfer, err := h.ledgerService.LastTransfer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get last transfer")
		return
	}
	WriteData(w, http.StatusOK, toTransferResponse(transfer), map[string]string{
		"goodjob": "/api/goodjobs/" + itoa(id),
	})
}
