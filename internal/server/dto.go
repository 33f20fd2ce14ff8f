package server

import (
	"zenflow/internal/domain"
	"zenflow/internal/engine"
	"zenflow/internal/payroll"
)

// Request payloads

type LoginRequest struct {
	Email    string `json:"email" example:"admin@zentask.com"`
	Password string `json:"password" example:"password123"`
}

type CreateUserRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role" enum:"ADMIN,MANAGER,SENIOR_PERFORMER,PERFORMER"`
	Password string      `json:"password" minLength:"6"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty" example:"#6366f1"`
}

type AttachmentRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data" doc:"base64 payload"`
}

type CreateTaskRequest struct {
	ProjectID           string              `json:"project_id"`
	Title               string              `json:"title"`
	Description         string              `json:"description,omitempty" doc:"HTML"`
	AssignedTo          string              `json:"assigned_to"`
	Priority            domain.Priority     `json:"priority,omitempty" enum:"Low,Medium,High"`
	Cost                float64             `json:"cost,omitempty"`
	RatePreset          string              `json:"rate_preset,omitempty" doc:"configured preset name, or manual"`
	ManagerRate         *float64            `json:"manager_rate,omitempty"`
	PerformerRate       *float64            `json:"performer_rate,omitempty"`
	SeniorPerformerRate *float64            `json:"senior_performer_rate,omitempty"`
	Attachments         []AttachmentRequest `json:"attachments,omitempty"`
	GenerateDescription bool                `json:"generate_description,omitempty"`
}

type UpdateTaskStatusRequest struct {
	Status domain.TaskStatus `json:"status" enum:"TODO,IN_PROGRESS,DONE"`
}

type CreateLeadRequest struct {
	Name        string  `json:"name"`
	Contact     string  `json:"contact,omitempty"`
	Description string  `json:"description,omitempty"`
	Cost        float64 `json:"cost,omitempty"`
}

type DescriptionRequest struct {
	Title string `json:"title"`
}

// Response payloads

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
	User      domain.User `json:"user"`
}

type MeResponse struct {
	User        domain.User `json:"user"`
	Permissions []string    `json:"permissions"`
	SessionID   string      `json:"session_id"`
	ExpiresAt   int64       `json:"expires_at"`
}

type DescriptionResponse struct {
	Description string `json:"description"`
}

type WorkloadResponse struct {
	Analysis string `json:"analysis"`
}

type SnapshotResponse = engine.SnapshotView

type ReportResponse = payroll.Report

func (r CreateTaskRequest) options() engine.TaskCreateOptions {
	opts := engine.TaskCreateOptions{
		ProjectID:           r.ProjectID,
		Title:               r.Title,
		Description:         r.Description,
		AssignedTo:          r.AssignedTo,
		Priority:            r.Priority,
		Cost:                r.Cost,
		RatePreset:          r.RatePreset,
		ManagerRate:         r.ManagerRate,
		PerformerRate:       r.PerformerRate,
		SeniorPerformerRate: r.SeniorPerformerRate,
		GenerateDescription: r.GenerateDescription,
	}
	for _, a := range r.Attachments {
		opts.Attachments = append(opts.Attachments, domain.Attachment{Name: a.Name, Type: a.Type, Size: a.Size, Data: a.Data})
	}
	return opts
}
