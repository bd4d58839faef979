package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuelReschke/GuildPay/internal/pkg/billing"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeGrantRole  JobType = "grant_role"
	JobTypeRevokeRole JobType = "revoke_role"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
}

// RoleMutator applies a role change in the chat platform. applied is false
// when the member already was in the requested state.
type RoleMutator interface {
	ApplyRoleChange(ctx context.Context, change billing.RoleChange) (applied bool, err error)
}

// OutcomeSink receives the final outcome of every role job.
type OutcomeSink interface {
	RecordRoleOutcome(ctx context.Context, change billing.RoleChange, outcome string, cause error)
}

// RoleChangeJobPayload contains the payload for grant and revoke jobs
type RoleChangeJobPayload struct {
	WebhookEventID uint      `json:"webhook_event_id"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	GuildID        string    `json:"guild_id"`
	UserID         string    `json:"user_id"`
	RoleID         string    `json:"role_id"`
	ReceivedAt     time.Time `json:"received_at"`
}

// NewRoleChangeJobPayload copies the fields of a role change.
func NewRoleChangeJobPayload(change billing.RoleChange) RoleChangeJobPayload {
	return RoleChangeJobPayload{
		WebhookEventID: change.WebhookEventID,
		EventID:        change.EventID,
		EventType:      change.EventType,
		GuildID:        change.GuildID,
		UserID:         change.UserID,
		RoleID:         change.RoleID,
		ReceivedAt:     change.ReceivedAt,
	}
}

// ToMap converts the payload to a map for storage
func (p RoleChangeJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"webhook_event_id": p.WebhookEventID,
		"event_id":         p.EventID,
		"event_type":       p.EventType,
		"guild_id":         p.GuildID,
		"user_id":          p.UserID,
		"role_id":          p.RoleID,
		"received_at":      p.ReceivedAt,
	}
}

// RoleChange rebuilds the billing role change for the given job type.
func (p RoleChangeJobPayload) RoleChange(jobType JobType) billing.RoleChange {
	action := billing.ActionGrant
	if jobType == JobTypeRevokeRole {
		action = billing.ActionRevoke
	}
	return billing.RoleChange{
		WebhookEventID: p.WebhookEventID,
		EventID:        p.EventID,
		EventType:      p.EventType,
		Action:         action,
		GuildID:        p.GuildID,
		UserID:         p.UserID,
		RoleID:         p.RoleID,
		ReceivedAt:     p.ReceivedAt,
	}
}

// RoleChangeJobPayloadFromMap creates a payload from a map
func RoleChangeJobPayloadFromMap(data map[string]interface{}) (*RoleChangeJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload RoleChangeJobPayload
	if err := json.Unmarshal(jsonData, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// JobTypeForAction maps a billing action to its job type.
func JobTypeForAction(action billing.Action) (JobType, error) {
	switch action {
	case billing.ActionGrant:
		return JobTypeGrantRole, nil
	case billing.ActionRevoke:
		return JobTypeRevokeRole, nil
	default:
		return "", fmt.Errorf("no job type for action %q", action)
	}
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed. Failed jobs are not retried.
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
}
