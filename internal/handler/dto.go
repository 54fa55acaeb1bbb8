package handler

import (
	"github.com/forgo/goodjobs/internal/model"
)

// UserResponse represents a user in API responses. The password hash is
// never included.
type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// GoodJobResponse represents a GoodJob in API responses
type GoodJobResponse struct {
	ID               int64              `json:"id"`
	GeneratedDate    string             `json:"generatedDate"`
	CurrentOwner     *model.UserRef     `json:"currentOwner"`
	LastTransferDate *string            `json:"lastTransferDate"`
	Transfers        []TransferResponse `json:"transfers,omitempty"`
}

// TransferResponse represents a ledger entry in API responses
type TransferResponse struct {
	ID               int64          `json:"id"`
	Date             string         `json:"date"`
	GoodJobID        int64          `json:"goodJobId"`
	FromUserID       int64          `json:"fromUserId"`
	ToUserID         int64          `json:"toUserId"`
	FromUser         *model.UserRef `json:"fromUser,omitempty"`
	ToUser           *model.UserRef `json:"toUser,omitempty"`
	BalanceAfterFrom int            `json:"balanceAfterFrom"`
	BalanceAfterTo   int            `json:"balanceAfterTo"`
}

func toUserResponse(u *model.User) UserResponse {
	resp := UserResponse{ID: u.ID, Name: u.Name, IsAdmin: u.IsAdmin}
	if !u.CreatedAt.IsZero() {
		resp.CreatedAt = model.FormatTimestamp(u.CreatedAt)
	}
	return resp
}

func toUserResponses(users []*model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toGoodJobResponse(g *model.GoodJob) GoodJobResponse {
	resp := GoodJobResponse{
		ID:               g.ID,
		GeneratedDate:    model.FormatTimestamp(g.GeneratedDate),
		CurrentOwner:     g.CurrentOwner,
		LastTransferDate: model.FormatTimestampPtr(g.LastTransferDate),
	}
	if g.Transfers != nil {
		resp.Transfers = toTransferResponses(g.Transfers)
	}
	return resp
}

func toGoodJobResponses(jobs []*model.GoodJob) []GoodJobResponse {
	out := make([]GoodJobResponse, 0, len(jobs))
	for _, g := range jobs {
		out = append(out, toGoodJobResponse(g))
	}
	return out
}

func toTransferResponse(t *model.Transfer) TransferResponse {
	return TransferResponse{
		ID:               t.ID,
		Date:             model.FormatTimestamp(t.Date),
		GoodJobID:        t.GoodJobID,
		FromUserID:       t.FromUserID,
		ToUserID:         t.ToUserID,
		FromUser:         t.FromUser,
		ToUser:           t.ToUser,
		BalanceAfterFrom: t.BalanceAfterFrom,
		BalanceAfterTo:   t.BalanceAfterTo,
	}
}

func toTransferResponses(transfers []model.Transfer) []TransferResponse {
	out := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		out = append(out, toTransferResponse(&transfers[i]))
	}
	return out
}
