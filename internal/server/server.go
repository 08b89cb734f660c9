package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/woakley/ghosthand/internal/agent"
	"github.com/woakley/ghosthand/internal/observability"
	"github.com/woakley/ghosthand/internal/store"
)

// Enroller triggers owner enrollment; the mechanism is an external
// collaborator.
type Enroller func(ctx context.Context) error

// Bridge exposes the goal pipeline over HTTP. Submissions are
// acknowledged immediately and run on their own goroutine; results are
// retrievable only through the history endpoints.
type Bridge struct {
	Runner *agent.Runner
	Store  *store.Store
	Enroll Enroller
	Logger *observability.Logger
}

func New(runner *agent.Runner, st *store.Store, enroll Enroller, logger *observability.Logger) *gin.Engine {
	b := &Bridge{Runner: runner, Store: st, Enroll: enroll, Logger: logger}

	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	b.attachRoutes(g)
	return g
}

func (b *Bridge) attachRoutes(g *gin.Engine) {
	g.POST("/goal", b.receiveGoal)
	g.POST("/plan", b.receivePlan)
	g.POST("/enroll", b.enroll)
	g.GET("/users", b.users)
	g.GET("/history", b.history)
}

type goalRequest struct {
	Goal   string `json:"goal"`
	User   string `json:"user"`
	DryRun bool   `json:"dry_run"`
}

func (b *Bridge) receiveGoal(c *gin.Context) {
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.User == "" {
		req.User = "default"
	}

	taskID := uuid.NewString()
	b.Logger.LogGoal(req.User, req.Goal)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.Logger.Error("background goal %s panicked: %v", taskID, r)
			}
		}()
		b.Runner.RunGoal(context.Background(), agent.Goal{
			Text:   req.Goal,
			User:   req.User,
			DryRun: req.DryRun,
		})
	}()

	c.JSON(http.StatusOK, gin.H{"status": "started", "task_id": taskID})
}

type planRequest struct {
	GoalPlan string `json:"goal_plan"`
	User     string `json:"user"`
	DryRun   bool   `json:"dry_run"`
}

func (b *Bridge) receivePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.User == "" {
		req.User = "default"
	}

	taskID := uuid.NewString()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.Logger.Error("background plan %s panicked: %v", taskID, r)
			}
		}()
		b.Runner.RunPlanDirect(context.Background(), req.GoalPlan, req.User, req.DryRun)
	}()

	c.JSON(http.StatusOK, gin.H{"status": "started", "task_id": taskID})
}

func (b *Bridge) enroll(c *gin.Context) {
	if b.Enroll == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "enrollment is not configured"})
		return
	}

	go func() {
		if err := b.Enroll(context.Background()); err != nil {
			b.Logger.Error("enrollment failed: %v", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (b *Bridge) users(c *gin.Context) {
	users, err := b.Store.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// The default user is always offered.
	found := false
	for _, u := range users {
		if u == "default" {
			found = true
			break
		}
	}
	if !found {
		users = append([]string{"default"}, users...)
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (b *Bridge) history(c *gin.Context) {
	limit := 5
	if v := c.Query("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit <= 0 {
			limit = 5
		}
	}

	records, err := b.Store.RecentGoals(limit, c.Query("user"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	history := make([]gin.H, 0, len(records))
	for _, r := range records {
		history = append(history, gin.H{
			"timestamp": r.Timestamp,
			"user":      r.User,
			"goal":      r.Goal,
			"result":    r.Result,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
