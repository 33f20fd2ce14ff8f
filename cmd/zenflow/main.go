package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"zenflow/internal/app"
	"zenflow/internal/config"
	"zenflow/internal/db"
	"zenflow/internal/domain"
	"zenflow/internal/engine"
	"zenflow/internal/payroll"
)

var rootCmd = &cobra.Command{
	Use:   "zenflow",
	Short: "ZenFlow CLI",
	Long: `ZenFlow tracks an agency's projects, tasks, sales leads and the payouts they earn.
- Users have a role: ADMIN, MANAGER, SENIOR_PERFORMER or PERFORMER.
- Tasks move TODO -> IN_PROGRESS -> DONE; only the assignee moves them, one step at a time.
- Each task carries a cost and a manager/performer/senior rate split; the report command shows earned and pending rewards.
- Leads walk the sales funnel NEW -> CONTACTED -> QUALIFIED -> PROPOSAL -> WON, or drop to LOST.
Commands act as the user named by --actor-email (or ZENFLOW_ACTOR_EMAIL).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return app.LoadDotEnv(workspace)
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ZENFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-email", "", "email of the user the command acts as")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("dev-log", false, "human readable development logs")
	for _, name := range []string{"workspace", "json", "actor-email", "log-level", "dev-log"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(leadCmd())
	rootCmd.AddCommand(reportCmd())
}

func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if viper.GetBool("dev-log") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "zenflow.yml holds the server address, session lifetime, rate presets, AI sampling and demo seeding. Missing keys fall back to built-in defaults.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default zenflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate zenflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo organization into an empty workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if password == "" {
					password = e.Config.Seed.Password
				}
				seeded, err := e.SeedDemo(ctx, password)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"seeded": seeded})
				}
				if !seeded {
					fmt.Println("workspace already has users; nothing seeded")
					return nil
				}
				fmt.Println("seeded demo organization; log in as admin@zentask.com")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for every demo user (defaults to seed.password)")
	return cmd
}

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Manage team members"}
	u.AddCommand(userListCmd())
	u.AddCommand(userCreateCmd())
	u.AddCommand(userDeleteCmd())
	return u
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				users, err := e.ListUsers(ctx, req)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := newTable("ID", "Name", "Email", "Role")
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Email, u.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func userCreateCmd() *cobra.Command {
	var opts engine.UserCreateOptions
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Role = domain.Role(strings.ToUpper(role))
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				u, err := e.CreateUser(ctx, req, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "full name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "login email")
	cmd.Flags().StringVar(&role, "role", string(domain.RolePerformer), fmt.Sprintf("one of %v", domain.Roles))
	cmd.Flags().StringVar(&opts.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				if err := e.DeleteUser(ctx, req, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted user", args[0])
				return nil
			})
		},
	}
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectDeleteCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Color", "Description")
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Color, p.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				p, err := e.CreateProject(ctx, req, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "project description")
	cmd.Flags().StringVar(&opts.Color, "color", "", "hex color like #6366f1")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				if err := e.DeleteProject(ctx, req, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted project", args[0])
				return nil
			})
		},
	}
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks belong to a project and a single assignee. Budgets (cost and rates) are only shown to admins and managers; everyone else sees their own reward.",
	}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskGetCmd())
	t.AddCommand(taskCreateCmd())
	t.AddCommand(taskStatusCmd("start", "Move a task to IN_PROGRESS", domain.TaskInProgress))
	t.AddCommand(taskStatusCmd("done", "Move a task to DONE", domain.TaskDone))
	t.AddCommand(taskDeleteCmd())
	return t
}

func taskListCmd() *cobra.Command {
	var opts engine.TaskListOptions
	var status string
	var board bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Status = domain.TaskStatus(strings.ToUpper(status))
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				tasks, err := e.ListTasks(ctx, req, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				if board {
					printBoard(tasks)
					return nil
				}
				tw := newTable("ID", "Title", "Status", "Priority", "Assignee", "Reward")
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, t.AssignedTo, money(t.Reward)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&status, "status", "", "status filter (TODO, IN_PROGRESS, DONE)")
	cmd.Flags().BoolVar(&board, "board", false, "group tasks into kanban columns")
	return cmd
}

// printBoard renders one column per status.
func printBoard(tasks []payroll.TaskView) {
	columns := []domain.TaskStatus{domain.TaskTodo, domain.TaskInProgress, domain.TaskDone}
	byStatus := map[domain.TaskStatus][]string{}
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], fmt.Sprintf("[%s] %s", t.Priority, t.Title))
	}
	depth := 0
	header := table.Row{}
	for _, s := range columns {
		header = append(header, fmt.Sprintf("%s (%d)", s, len(byStatus[s])))
		depth = max(depth, len(byStatus[s]))
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	for i := 0; i < depth; i++ {
		row := table.Row{}
		for _, s := range columns {
			cell := ""
			if i < len(byStatus[s]) {
				cell = byStatus[s][i]
			}
			row = append(row, cell)
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				t, err := e.GetTask(ctx, req, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var priority string
	var managerRate, performerRate, seniorRate float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Long:  "Rates come from --preset (see zenflow.yml rates.presets) unless any --*-rate flag is given, in which case all three are taken as entered.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Priority = domain.Priority(priority)
			flags := cmd.Flags()
			if flags.Changed("manager-rate") || flags.Changed("performer-rate") || flags.Changed("senior-rate") {
				opts.RatePreset = engine.ManualRates
				opts.ManagerRate = &managerRate
				opts.PerformerRate = &performerRate
				opts.SeniorPerformerRate = &seniorRate
			}
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				t, err := e.CreateTask(ctx, req, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "task description")
	cmd.Flags().StringVar(&opts.AssignedTo, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&priority, "priority", string(domain.PriorityMedium), "Low, Medium or High")
	cmd.Flags().Float64Var(&opts.Cost, "cost", 0, "task budget")
	cmd.Flags().StringVar(&opts.RatePreset, "preset", "", "rate preset name")
	cmd.Flags().Float64Var(&managerRate, "manager-rate", 0, "manager rate in percent")
	cmd.Flags().Float64Var(&performerRate, "performer-rate", 0, "performer rate in percent")
	cmd.Flags().Float64Var(&seniorRate, "senior-rate", 0, "senior performer rate in percent")
	cmd.Flags().BoolVar(&opts.GenerateDescription, "ai-description", false, "ask the assistant for a description when none is given")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("assignee")
	return cmd
}

func taskStatusCmd(use, short string, status domain.TaskStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				t, err := e.UpdateTaskStatus(ctx, req, args[0], status)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				if err := e.DeleteTask(ctx, req, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted task", args[0])
				return nil
			})
		},
	}
}

func leadCmd() *cobra.Command {
	l := &cobra.Command{Use: "lead", Short: "Manage the sales funnel"}
	l.AddCommand(leadListCmd())
	l.AddCommand(leadCreateCmd())
	l.AddCommand(leadMoveCmd("advance", "Move a lead one stage forward", engine.Engine.AdvanceLead))
	l.AddCommand(leadMoveCmd("lose", "Mark a lead as lost", engine.Engine.LoseLead))
	l.AddCommand(leadDeleteCmd())
	return l
}

func leadListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				leads, err := e.ListLeads(ctx, req)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(leads)
				}
				tw := newTable("ID", "Name", "Contact", "Status", "Value")
				for _, l := range leads {
					tw.AppendRow(table.Row{l.ID, l.Name, l.Contact, l.Status, money(l.Cost)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func leadCreateCmd() *cobra.Command {
	var opts engine.LeadCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				l, err := e.CreateLead(ctx, req, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "lead name")
	cmd.Flags().StringVar(&opts.Contact, "contact", "", "contact details")
	cmd.Flags().StringVar(&opts.Description, "description", "", "what the client wants")
	cmd.Flags().Float64Var(&opts.Cost, "value", 0, "estimated deal value")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func leadMoveCmd(use, short string, move func(engine.Engine, context.Context, payroll.Requester, string) (domain.Lead, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				l, err := move(e, ctx, req, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
}

func leadDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				if err := e.DeleteLead(ctx, req, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted lead", args[0])
				return nil
			})
		},
	}
}

func reportCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the payments report",
		Long:  "Admins see the whole organization unless --user is given; managers may pick any user; everyone else sees their own payouts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, req payroll.Requester) error {
				rep, err := e.Report(ctx, req, userID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				scope := rep.TargetID
				if rep.All {
					scope = "organization"
				}
				tw := newTable("Task", "Status", "Reward", "Paid")
				for _, it := range rep.Items {
					tw.AppendRow(table.Row{it.Task.Title, it.Task.Status, money(it.Reward), it.Paid})
				}
				tw.AppendFooter(table.Row{"Earned", "", money(rep.EarnedTotal), ""})
				tw.AppendFooter(table.Row{"Pending", "", money(rep.PendingTotal), ""})
				fmt.Printf("Payments for %s (%d tasks)\n", scope, rep.TaskCount)
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to report on")
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	env, err := app.Open(ctx, app.Options{Workspace: viper.GetString("workspace"), SkipSeed: true})
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env.Engine)
}

// withActor resolves --actor-email into the requester every permissioned call needs.
func withActor(ctx context.Context, fn func(context.Context, engine.Engine, payroll.Requester) error) error {
	email := viper.GetString("actor-email")
	if email == "" {
		return errors.New("actor required; pass --actor-email or set ZENFLOW_ACTOR_EMAIL")
	}
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		u, err := e.UserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("actor %s: %w", email, err)
		}
		return fn(ctx, e, engine.RequesterFor(u))
	})
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func money(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
