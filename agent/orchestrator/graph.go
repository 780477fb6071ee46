package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/lamnv/todoagent/agent/contract"
)

type graphInput struct {
	Prompt string
}

type graphState struct {
	Prompt     string
	History    []contractx.Message
	Answer     string
	Iterations int
	Note       string
}

func (o *Orchestrator) compileAskGraph(
	ctx context.Context,
) (compose.Runnable[graphInput, contractx.AskResult], error) {
	graph := compose.NewGraph[graphInput, contractx.AskResult]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in graphInput) (*graphState, error) {
			return o.validateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("seed_history",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return o.seedHistory(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node seed_history: %w", err)
	}

	if err := graph.AddLambdaNode("run_exchange",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return o.runExchange(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_exchange: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_answer",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (contractx.AskResult, error) {
			return o.finalizeAnswer(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_answer: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "seed_history"},
		{"seed_history", "run_exchange"},
		{"run_exchange", "finalize_answer"},
		{"finalize_answer", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.ask"))
	if err != nil {
		return nil, fmt.Errorf("compile ask graph: %w", err)
	}
	return runner, nil
}
