package zenflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal ZenFlow HTTP API client.
type Client struct {
	BaseURL string
	// BasePath is the API prefix, /v1 unless the server was started with another one.
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
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

// Task is a task as the caller may see it. Budget fields are zero when BudgetHidden is set.
type Task struct {
	ID                  string       `json:"id"`
	ProjectID           string       `json:"project_id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Status              string       `json:"status"`
	AssignedTo          string       `json:"assigned_to"`
	CreatedBy           string       `json:"created_by"`
	CreatedAt           int64        `json:"created_at"`
	StartedAt           *int64       `json:"started_at,omitempty"`
	CompletedAt         *int64       `json:"completed_at,omitempty"`
	Priority            string       `json:"priority"`
	Attachments         []Attachment `json:"attachments,omitempty"`
	Cost                float64      `json:"cost"`
	ManagerRate         float64      `json:"manager_rate"`
	PerformerRate       float64      `json:"performer_rate"`
	SeniorPerformerRate float64      `json:"senior_performer_rate"`
	Reward              float64      `json:"reward"`
	BudgetHidden        bool         `json:"budget_hidden,omitempty"`
}

type Lead struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Contact     string  `json:"contact"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Status      string  `json:"status"`
	CreatedAt   int64   `json:"created_at"`
}

type Snapshot struct {
	Users    []User    `json:"users"`
	Projects []Project `json:"projects"`
	Tasks    []Task    `json:"tasks"`
	Leads    []Lead    `json:"leads"`
}

type ReportItem struct {
	Task   Task    `json:"task"`
	Reward float64 `json:"reward"`
	Paid   bool    `json:"paid"`
}

type Report struct {
	TargetID     string       `json:"target_id"`
	All          bool         `json:"all"`
	EarnedTotal  float64      `json:"earned_total"`
	PendingTotal float64      `json:"pending_total"`
	TaskCount    int          `json:"task_count"`
	Items        []ReportItem `json:"items"`
}

type Session struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	User      User   `json:"user"`
}

type Me struct {
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
	SessionID   string   `json:"session_id"`
	ExpiresAt   int64    `json:"expires_at"`
}

// CreateTaskInput mirrors the task creation body. Nil rates use RatePreset.
type CreateTaskInput struct {
	ProjectID           string       `json:"project_id"`
	Title               string       `json:"title"`
	Description         string       `json:"description,omitempty"`
	AssignedTo          string       `json:"assigned_to"`
	Priority            string       `json:"priority,omitempty"`
	Cost                float64      `json:"cost,omitempty"`
	RatePreset          string       `json:"rate_preset,omitempty"`
	ManagerRate         *float64     `json:"manager_rate,omitempty"`
	PerformerRate       *float64     `json:"performer_rate,omitempty"`
	SeniorPerformerRate *float64     `json:"senior_performer_rate,omitempty"`
	Attachments         []Attachment `json:"attachments,omitempty"`
	GenerateDescription bool         `json:"generate_description,omitempty"`
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Body       string         `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges credentials for a bearer token and keeps it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "auth/login", map[string]string{"email": email, "password": password}, &resp)
	if err == nil {
		c.BearerToken = resp.Token
	}
	return resp, err
}

// Logout revokes the current token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "auth/logout", nil, nil); err != nil {
		return err
	}
	c.BearerToken = ""
	return nil
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var resp Me
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	var resp Snapshot
	err := c.do(ctx, http.MethodGet, "snapshot", nil, &resp)
	return resp, err
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp []User
	err := c.do(ctx, http.MethodGet, "users", nil, &resp)
	return resp, err
}

func (c *Client) CreateUser(ctx context.Context, name, email, role, password string) (User, error) {
	body := map[string]string{"name": name, "email": email, "role": role, "password": password}
	var resp User
	err := c.do(ctx, http.MethodPost, "users", body, &resp)
	return resp, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp []Project
	err := c.do(ctx, http.MethodGet, "projects", nil, &resp)
	return resp, err
}

func (c *Client) CreateProject(ctx context.Context, name, description, color string) (Project, error) {
	body := map[string]string{"name": name, "description": description, "color": color}
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "projects/"+url.PathEscape(id), nil, nil)
}

// ListTasks returns visible tasks, optionally filtered by project and status.
func (c *Client) ListTasks(ctx context.Context, projectID, status string) ([]Task, error) {
	q := url.Values{}
	if projectID != "" {
		q.Set("project_id", projectID)
	}
	if status != "" {
		q.Set("status", status)
	}
	endpoint := "tasks"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", in, &resp)
	return resp, err
}

// UpdateTaskStatus moves a task the caller is assigned to.
func (c *Client) UpdateTaskStatus(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("tasks/%s/status", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]string{"status": status}, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListLeads(ctx context.Context) ([]Lead, error) {
	var resp []Lead
	err := c.do(ctx, http.MethodGet, "leads", nil, &resp)
	return resp, err
}

func (c *Client) CreateLead(ctx context.Context, name, contact, description string, cost float64) (Lead, error) {
	body := map[string]any{"name": name, "contact": contact, "description": description, "cost": cost}
	var resp Lead
	err := c.do(ctx, http.MethodPost, "leads", body, &resp)
	return resp, err
}

func (c *Client) AdvanceLead(ctx context.Context, id string) (Lead, error) {
	var resp Lead
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("leads/%s/advance", url.PathEscape(id)), nil, &resp)
	return resp, err
}

func (c *Client) LoseLead(ctx context.Context, id string) (Lead, error) {
	var resp Lead
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("leads/%s/lose", url.PathEscape(id)), nil, &resp)
	return resp, err
}

func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "leads/"+url.PathEscape(id), nil, nil)
}

// Report returns the payments report. An empty userID lets the server pick the default scope.
func (c *Client) Report(ctx context.Context, userID string) (Report, error) {
	endpoint := "reports/payments"
	if userID != "" {
		endpoint += "?user_id=" + url.QueryEscape(userID)
	}
	var resp Report
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) GenerateDescription(ctx context.Context, title string) (string, error) {
	var resp struct {
		Description string `json:"description"`
	}
	err := c.do(ctx, http.MethodPost, "ai/description", map[string]string{"title": title}, &resp)
	return resp.Description, err
}

func (c *Client) AnalyzeWorkload(ctx context.Context) (string, error) {
	var resp struct {
		Analysis string `json:"analysis"`
	}
	err := c.do(ctx, http.MethodGet, "ai/workload", nil, &resp)
	return resp.Analysis, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
