package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
)

// Agent is a persona handed to the reasoning engine together with the tools it may use
type Agent struct {
	Role      string
	Goal      string
	Backstory string
	Tools     []domain.Tool
}

// Task is one unit of work performed by an agent
type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          Agent
	JSONOutput     bool
}

// Crew runs its tasks strictly in order. Each task receives the previous
// task's output as context; the last task's output is the crew's result.
type Crew struct {
	engine domain.ReasoningEngine
	tasks  []Task
	log    *zap.Logger
}

// NewCrew creates a sequential crew
func NewCrew(engine domain.ReasoningEngine, log *zap.Logger, tasks ...Task) *Crew {
	return &Crew{engine: engine, tasks: tasks, log: logger.OrNop(log)}
}

// Kickoff executes every task and returns the final output
func (c *Crew) Kickoff(ctx context.Context) (string, error) {
	if len(c.tasks) == 0 {
		return "", fmt.Errorf("crew has no tasks")
	}

	var previous string
	for _, task := range c.tasks {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		c.log.Info("task started", zap.String("task", task.Name), zap.String("agent", task.Agent.Role))

		output, err := c.engine.Run(ctx, domain.ReasoningRequest{
			Role:           task.Agent.Role,
			Goal:           task.Agent.Goal,
			Backstory:      task.Agent.Backstory,
			Task:           task.Description,
			ExpectedOutput: task.ExpectedOutput,
			Context:        previous,
			Tools:          task.Agent.Tools,
			JSONOutput:     task.JSONOutput,
		})
		if err != nil {
			return "", fmt.Errorf("task %q: %w", task.Name, err)
		}

		c.log.Info("task finished",
			zap.String("task", task.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Int("outputLength", len(output)))
		previous = output
	}

	return previous, nil
}
