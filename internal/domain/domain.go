package domain

import "strings"

type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RoleManager         Role = "MANAGER"
	RoleSeniorPerformer Role = "SENIOR_PERFORMER"
	RolePerformer       Role = "PERFORMER"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleSeniorPerformer, RolePerformer}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSeniorPerformer, RolePerformer:
		return true
	}
	return false
}

// IsPerformer reports whether the role does the work rather than managing it.
func (r Role) IsPerformer() bool {
	return r == RolePerformer || r == RoleSeniorPerformer
}

// ParseRole accepts any case and dashes in place of underscores.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	return r, r.Valid()
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// TaskStatuses is the board column order.
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskDone}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// Next returns the single forward transition from s, if any.
func (s TaskStatus) Next() (TaskStatus, bool) {
	switch s {
	case TaskTodo:
		return TaskInProgress, true
	case TaskInProgress:
		return TaskDone, true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type LeadStatus string

const (
	LeadNew       LeadStatus = "NEW"
	LeadContacted LeadStatus = "CONTACTED"
	LeadQualified LeadStatus = "QUALIFIED"
	LeadProposal  LeadStatus = "PROPOSAL"
	LeadWon       LeadStatus = "WON"
	LeadLost      LeadStatus = "LOST"
)

// LeadFunnel is the ordered sales pipeline.
var LeadFunnel = []LeadStatus{LeadNew, LeadContacted, LeadQualified, LeadProposal, LeadWon, LeadLost}

func (s LeadStatus) Valid() bool {
	for _, v := range LeadFunnel {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the lead can no longer move.
func (s LeadStatus) Terminal() bool {
	return s == LeadWon || s == LeadLost
}

// Advance returns the next funnel stage. Terminal and unknown stages are returned unchanged
// with ok=false.
func (s LeadStatus) Advance() (LeadStatus, bool) {
	if s.Terminal() {
		return s, false
	}
	for i, v := range LeadFunnel {
		if v == s && i+1 < len(LeadFunnel) {
			return LeadFunnel[i+1], true
		}
	}
	return s, false
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role" enum:"ADMIN,MANAGER,SENIOR_PERFORMER,PERFORMER"`
	Avatar       string `json:"avatar"`
	PasswordHash string `json:"-"`
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	CreatedAt   int64  `json:"created_at"`
}

type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}

// Task amounts are in a single currency; rates are percentages of Cost.
type Task struct {
	ID                  string       `json:"id"`
	ProjectID           string       `json:"project_id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Status              TaskStatus   `json:"status" enum:"TODO,IN_PROGRESS,DONE"`
	AssignedTo          string       `json:"assigned_to"`
	CreatedBy           string       `json:"created_by"`
	CreatedAt           int64        `json:"created_at"`
	StartedAt           *int64       `json:"started_at,omitempty"`
	CompletedAt         *int64       `json:"completed_at,omitempty"`
	Priority            Priority     `json:"priority" enum:"Low,Medium,High"`
	Attachments         []Attachment `json:"attachments,omitempty"`
	Cost                float64      `json:"cost"`
	ManagerRate         float64      `json:"manager_rate"`
	PerformerRate       float64      `json:"performer_rate"`
	SeniorPerformerRate float64      `json:"senior_performer_rate"`
}

type Lead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Contact     string     `json:"contact"`
	Description string     `json:"description"`
	Cost        float64    `json:"cost"`
	Status      LeadStatus `json:"status" enum:"NEW,CONTACTED,QUALIFIED,PROPOSAL,WON,LOST"`
	CreatedAt   int64      `json:"created_at"`
}

type Session struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TokenHash string `json:"-"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// Snapshot holds every collection. Each collection is read on its own, so a write landing
// mid-fetch may show up in some collections and not others.
type Snapshot struct {
	Users    []User    `json:"users"`
	Projects []Project `json:"projects"`
	Tasks    []Task    `json:"tasks"`
	Leads    []Lead    `json:"leads"`
}

// FindUser returns the user with id, if present.
func FindUser(users []User, id string) (User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
