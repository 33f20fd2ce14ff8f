package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"zenflow/internal/domain"
	"zenflow/internal/engine"
	"zenflow/internal/engine/auth"
	"zenflow/internal/payroll"
)

var (
	readErrors  = []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound}
	writeErrors = []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusUnprocessableEntity,
		http.StatusInternalServerError,
	}
)

type idPath struct {
	ID string `path:"id"`
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuth(api huma.API, e engine.Engine, cfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange email and password for a session token",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body LoginResponse `json:"body"`
	}, error) {
		res, err := e.Login(ctx, engine.LoginOptions{
			Email:    input.Body.Email,
			Password: input.Body.Password,
			Sign:     sessionSigner(cfg.JWTSecret),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LoginResponse `json:"body"`
		}{Body: LoginResponse{Token: res.Token, ExpiresAt: res.Session.ExpiresAt, User: res.User}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "Revoke the current session",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		if err := e.Logout(ctx, p.Token); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user and permissions",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: MeResponse{
			User:        p.User,
			Permissions: auth.Permissions(p.User.Role),
			SessionID:   p.Session.ID,
			ExpiresAt:   p.Session.ExpiresAt,
		}}, nil
	})
}

func registerSnapshot(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "snapshot",
		Method:      http.MethodGet,
		Path:        "/snapshot",
		Summary:     "Fetch every collection visible to the caller",
		Errors:      readErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SnapshotResponse `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		snap, err := e.Snapshot(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SnapshotResponse `json:"body"`
		}{Body: snap}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List team members",
		Errors:      readErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		users, err := e.ListUsers(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.CreateUser(ctx, req, engine.UserCreateOptions{
			Name:     input.Body.Name,
			Email:    input.Body.Email,
			Role:     input.Body.Role,
			Password: input.Body.Password,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-user",
		Method:        http.MethodDelete,
		Path:          "/users/{id}",
		Summary:       "Delete user",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteUser(ctx, req, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      readErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		if _, authErr := requesterFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, req, engine.ProjectCreateOptions{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Color:       input.Body.Color,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-project",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}",
		Summary:       "Delete project and its tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProject(ctx, req, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks visible to the caller",
		Errors:      append([]int{http.StatusBadRequest}, readErrors...),
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		Status    string `query:"status" enum:"TODO,IN_PROGRESS,DONE"`
	}) (*struct {
		Body []payroll.TaskView `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := e.ListTasks(ctx, req, engine.TaskListOptions{
			ProjectID: input.ProjectID,
			Status:    domain.TaskStatus(input.Status),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []payroll.TaskView `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body payroll.TaskView `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, req, input.Body.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body payroll.TaskView `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      readErrors,
	}, func(ctx context.Context, input *idPath) (*struct {
		Body payroll.TaskView `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTask(ctx, req, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body payroll.TaskView `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/status",
		Summary:     "Move a task one step forward",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body UpdateTaskStatusRequest `json:"body"`
	}) (*struct {
		Body payroll.TaskView `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTaskStatus(ctx, req, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body payroll.TaskView `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, req, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerLeads(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-leads",
		Method:      http.MethodGet,
		Path:        "/leads",
		Summary:     "List CRM leads",
		Errors:      readErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Lead `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		leads, err := e.ListLeads(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Lead `json:"body"`
		}{Body: leads}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-lead",
		Method:        http.MethodPost,
		Path:          "/leads",
		Summary:       "Create lead",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateLeadRequest `json:"body"`
	}) (*struct {
		Body domain.Lead `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.CreateLead(ctx, req, engine.LeadCreateOptions{
			Name:        input.Body.Name,
			Contact:     input.Body.Contact,
			Description: input.Body.Description,
			Cost:        input.Body.Cost,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Lead `json:"body"`
		}{Body: l}, nil
	})

	for _, mv := range []struct {
		op, summary string
		fn          func(context.Context, payroll.Requester, string) (domain.Lead, error)
	}{
		{"advance", "Advance lead to the next funnel stage", e.AdvanceLead},
		{"lose", "Mark lead lost", e.LoseLead},
	} {
		fn := mv.fn
		huma.Register(api, huma.Operation{
			OperationID: mv.op + "-lead",
			Method:      http.MethodPost,
			Path:        "/leads/{id}/" + mv.op,
			Summary:     mv.summary,
			Errors:      writeErrors,
		}, func(ctx context.Context, input *idPath) (*struct {
			Body domain.Lead `json:"body"`
		}, error) {
			req, authErr := requesterFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			l, err := fn(ctx, req, input.ID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Lead `json:"body"`
			}{Body: l}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID:   "delete-lead",
		Method:        http.MethodDelete,
		Path:          "/leads/{id}",
		Summary:       "Delete lead",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteLead(ctx, req, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "payments-report",
		Method:      http.MethodGet,
		Path:        "/reports/payments",
		Summary:     "Earned and pending rewards",
		Description: "user_id is a user id or ALL. Performers always get their own report; managers asking for ALL get their own.",
		Errors:      readErrors,
	}, func(ctx context.Context, input *struct {
		UserID string `query:"user_id"`
	}) (*struct {
		Body ReportResponse `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.Report(ctx, req, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReportResponse `json:"body"`
		}{Body: rep}, nil
	})
}

func registerAssist(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "ai-description",
		Method:      http.MethodPost,
		Path:        "/ai/description",
		Summary:     "Draft an HTML task description",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Body DescriptionRequest `json:"body"`
	}) (*struct {
		Body DescriptionResponse `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		text, err := e.GenerateDescription(ctx, req, input.Body.Title)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DescriptionResponse `json:"body"`
		}{Body: DescriptionResponse{Description: text}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ai-workload",
		Method:      http.MethodGet,
		Path:        "/ai/workload",
		Summary:     "Summarise team workload",
		Errors:      readErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WorkloadResponse `json:"body"`
	}, error) {
		req, authErr := requesterFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		text, err := e.AnalyzeWorkload(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkloadResponse `json:"body"`
		}{Body: WorkloadResponse{Analysis: text}}, nil
	})
}
