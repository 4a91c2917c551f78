// Package app defines the request types every workflow operation accepts.
// Field tags drive input validation; the field name in a validation error is
// the json name.
package app

import (
	"encoding/json"

	"github.com/alexanderramin/marketshift/internal/domain"
)

// Actor is the already-authenticated caller. Identity is established outside
// the core; operations only check role and ownership.
type Actor = domain.Actor

type CreateSessionRequest struct {
	Actor    Actor  `json:"actor"`
	MarketID string `json:"market_id" validate:"required,max=64"`
	// Date defaults to today in the organization timezone.
	Date string `json:"date" validate:"omitempty,date"`
}

// SessionRequest addresses one session. Used by every lifecycle transition
// and by per-session reads.
type SessionRequest struct {
	Actor     Actor  `json:"actor"`
	SessionID string `json:"session_id" validate:"required"`
}

type ListSessionsRequest struct {
	Actor     Actor                  `json:"actor"`
	Date      string                 `json:"date" validate:"omitempty,date"`
	MarketIDs []string               `json:"market_ids" validate:"dive,required"`
	OwnerID   string                 `json:"owner_id"`
	Statuses  []domain.SessionStatus `json:"statuses" validate:"dive,oneof=draft active finalized"`
}

type OpenSessionRequest struct {
	Actor Actor `json:"actor"`
	// OwnerID defaults to the actor.
	OwnerID string `json:"owner_id"`
	Date    string `json:"date" validate:"omitempty,date"`
}

type RecordTaskRequest struct {
	Actor     Actor           `json:"actor"`
	SessionID string          `json:"session_id" validate:"required"`
	TaskType  string          `json:"task_type" validate:"required,tasktype"`
	Payload   json.RawMessage `json:"payload"`
}

type UpdateTaskRequest struct {
	Actor    Actor           `json:"actor"`
	RecordID string          `json:"record_id" validate:"required"`
	Payload  json.RawMessage `json:"payload"`
}

type DeleteTaskRequest struct {
	Actor    Actor  `json:"actor"`
	RecordID string `json:"record_id" validate:"required"`
}

type CountTasksRequest struct {
	Actor     Actor  `json:"actor"`
	SessionID string `json:"session_id" validate:"required"`
	TaskType  string `json:"task_type" validate:"required,tasktype"`
}

type RecordCollectionRequest struct {
	Actor     Actor  `json:"actor"`
	SessionID string `json:"session_id" validate:"required"`
	Amount    string `json:"amount" validate:"required,money"`
	Note      string `json:"note" validate:"max=500"`
}

// ListCollectionsRequest lists a session's collections when SessionID is
// set, otherwise the collections for a date across markets.
type ListCollectionsRequest struct {
	Actor     Actor    `json:"actor"`
	SessionID string   `json:"session_id"`
	Date      string   `json:"date" validate:"omitempty,date"`
	MarketIDs []string `json:"market_ids" validate:"dive,required"`
}

type SummaryRequest struct {
	Actor     Actor    `json:"actor"`
	Date      string   `json:"date" validate:"omitempty,date"`
	MarketIDs []string `json:"market_ids" validate:"dive,required"`
}

type LiveMarketsRequest struct {
	Actor Actor  `json:"actor"`
	Date  string `json:"date" validate:"omitempty,date"`
}
