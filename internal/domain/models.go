// Package domain provides domain models and errors for the research assistant service.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is the self-declared role of a user. It drives feature access.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleReviewer    Role = "reviewer"
	RoleStudent     Role = "student"
	RolePolicymaker Role = "policymaker"
	RoleEducator    Role = "educator"
	RoleScientist   Role = "scientist"
	RoleOthers      Role = "others"
)

// DefaultRole is assigned when a user registers without a role.
const DefaultRole = RoleOthers

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReviewer, RoleStudent, RolePolicymaker, RoleEducator, RoleScientist, RoleOthers:
		return true
	default:
		return false
	}
}

// IsResearcherLike reports whether r may use the research-authoring features
// (survey, gap finder, methodology, replicator, LaTeX export).
func (r Role) IsResearcherLike() bool {
	switch r {
	case RoleScientist, RoleStudent, RoleEducator, RoleOthers:
		return true
	default:
		return false
	}
}

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Project groups documents, drafts and sources of one research effort.
type Project struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Domain    string    `json:"domain"`
	Aim       string    `json:"aim"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is an uploaded file. Path is the storage location returned by the storage backend.
type Document struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"-"`
	MIME      string    `json:"mime"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is a generated or edited manuscript in markdown.
type Draft struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	ContentMD string    `json:"content_md"`
	CreatedAt time.Time `json:"created_at"`
}

// Source is a paper brief saved into a project.
type Source struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	PaperBrief
}

// Citation links a numeric marker in a draft to a saved source.
type Citation struct {
	ID       uuid.UUID `json:"id"`
	DraftID  uuid.UUID `json:"draft_id"`
	SourceID uuid.UUID `json:"source_id"`
	Marker   string    `json:"marker"`
	Context  string    `json:"context"`
}

// JobStatus represents the lifecycle states of a background job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobTypeSurvey is the job type of an asynchronous literature survey.
const JobTypeSurvey = "survey"

// Job tracks a background task started on behalf of a user.
type Job struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Type       string    `json:"type"`
	Status     JobStatus `json:"status"`
	Message    string    `json:"message"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	// Result holds the JSON output of a completed job.
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
