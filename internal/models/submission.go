package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RawSubmission is the bronze-tier audit record of an inbound submission.
// Rows are append-only and never mutated after insert.
type RawSubmission struct {
	bun.BaseModel `bun:"table:raw_submissions"`

	SubmissionID string            `bun:"submission_id,pk" json:"submission_id"`
	ReceivedAt   time.Time         `bun:"received_at,notnull" json:"received_at"`
	SourceIP     string            `bun:"source_ip" json:"source_ip"`
	UserAgent    string            `bun:"user_agent" json:"user_agent"`
	RawPayload   map[string]string `bun:"raw_payload,type:jsonb" json:"raw_payload"`
}
