package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessDecision records the outcome of an ask request for the audit trail.
type AccessDecision string

const (
	DecisionAnswered            AccessDecision = "answered"
	DecisionNoAuthorizedContent AccessDecision = "no_authorized_content"
	DecisionDenied              AccessDecision = "denied"
	DecisionFailed              AccessDecision = "failed"
)

// AuditRecord is a single append-only entry in the access audit trail.
// Records are written once per completed request and never updated or
// deleted.
type AuditRecord struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	RequesterIdentity string         `json:"requester_identity" db:"requester_identity"`
	RoleAtTime        RoleID         `json:"role_at_time" db:"role_at_time"`
	QueryText         string         `json:"query_text" db:"query_text"`
	AccessedChunkIDs  []string       `json:"accessed_chunk_ids" db:"accessed_chunk_ids"`
	Decision          AccessDecision `json:"decision" db:"decision"`
	RequestID         string         `json:"request_id" db:"request_id"`
	Timestamp         time.Time      `json:"timestamp" db:"timestamp"`
}

// NewAuditRecord creates a record stamped with the current time.
func NewAuditRecord(identity string, role RoleID, queryText string, decision AccessDecision) *AuditRecord {
	return &AuditRecord{
		ID:                uuid.New(),
		RequesterIdentity: identity,
		RoleAtTime:        role,
		QueryText:         queryText,
		Decision:          decision,
		Timestamp:         time.Now(),
	}
}

// WithChunks sets the chunk IDs the response actually cited.
func (a *AuditRecord) WithChunks(chunkIDs []string) *AuditRecord {
	a.AccessedChunkIDs = chunkIDs
	return a
}

// WithRequestID attaches the HTTP request ID for correlation.
func (a *AuditRecord) WithRequestID(requestID string) *AuditRecord {
	a.RequestID = requestID
	return a
}
