package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	contractx "github.com/lamnv/todoagent/agent/contract"
	promptx "github.com/lamnv/todoagent/agent/prompt"
)

const defaultMaxIterations = 5

// toolErrorPrefix marks a failed tool outcome in the conversation so the
// model can tell it apart from a JSON payload.
const toolErrorPrefix = "TOOL_ERROR: "

type Config struct {
	// MaxIterations caps the number of model calls made with the tool
	// catalog offered. Zero means the default of 5.
	MaxIterations int
	// SystemPrompt overrides the embedded instruction message.
	SystemPrompt string
	Logger       zerolog.Logger
}

// Orchestrator drives one bounded model/tool exchange per request: it offers
// the full catalog each turn, executes requested tool calls in order, feeds
// results back, and stops when the model answers in plain text or the
// iteration bound forces a tool-free close-out call.
type Orchestrator struct {
	gateway       contractx.ModelGateway
	tools         contractx.ToolCatalog
	maxIterations int
	systemPrompt  string
	log           zerolog.Logger

	graphRunner compose.Runnable[graphInput, contractx.AskResult]
}

func New(gateway contractx.ModelGateway, tools contractx.ToolCatalog, cfg Config) (*Orchestrator, error) {
	if gateway == nil {
		return nil, errors.New("model gateway is required")
	}
	if tools == nil {
		return nil, errors.New("tool catalog is required")
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	systemPrompt := strings.TrimSpace(cfg.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = promptx.System()
	}

	o := &Orchestrator{
		gateway:       gateway,
		tools:         tools,
		maxIterations: maxIterations,
		systemPrompt:  systemPrompt,
		log:           cfg.Logger,
	}

	graphRunner, err := o.compileAskGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Ask runs one full exchange for a natural-language request and returns the
// final answer with the number of model calls it took.
func (o *Orchestrator) Ask(ctx context.Context, prompt string) (contractx.AskResult, error) {
	return o.graphRunner.Invoke(ctx, graphInput{Prompt: prompt})
}

func (o *Orchestrator) validateRequest(in graphInput) (*graphState, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", contractx.ErrValidation)
	}
	return &graphState{Prompt: prompt}, nil
}

func (o *Orchestrator) seedHistory(st *graphState) (*graphState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	st.History = []contractx.Message{
		{Role: contractx.RoleSystem, Content: o.systemPrompt},
		{Role: contractx.RoleUser, Content: st.Prompt},
	}
	return st, nil
}

// runExchange is the core loop. Model gateway failures abort the whole
// exchange; tool failures never do, they are relayed to the model as
// conversation content.
func (o *Orchestrator) runExchange(ctx context.Context, st *graphState) (*graphState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	specs := o.tools.Specs()

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		msg, err := o.gateway.Complete(ctx, st.History, specs)
		if err != nil {
			return nil, err
		}
		st.History = append(st.History, msg)
		st.Iterations = iteration

		if len(msg.ToolCalls) == 0 {
			st.Answer = msg.Content
			return st, nil
		}

		o.executeToolCalls(ctx, st, msg.ToolCalls)
	}

	// Bound hit while tools were still being requested: one last call
	// without the catalog forces a text-only answer.
	final, err := o.gateway.Complete(ctx, st.History, nil)
	if err != nil {
		return nil, err
	}
	st.History = append(st.History, final)
	st.Iterations = o.maxIterations + 1
	st.Answer = final.Content
	st.Note = fmt.Sprintf("Stopped after reaching the tool iteration limit (%d)", o.maxIterations)

	o.log.Warn().Int("max_iterations", o.maxIterations).Msg("tool iteration limit reached")
	return st, nil
}

// executeToolCalls runs the requested calls one at a time in request order,
// since later calls may depend on store state produced by earlier ones.
func (o *Orchestrator) executeToolCalls(ctx context.Context, st *graphState, calls []contractx.ToolCall) {
	for _, call := range calls {
		args, argsErr := parseToolArgs(call.Arguments)
		if argsErr != nil {
			st.History = append(st.History, toolMessage(call.ID, toolErrorPrefix+argsErr.Error()))
			continue
		}

		outcome, known := o.tools.Execute(ctx, call.Name, args)
		if !known {
			// Deliberate leniency: unknown names are dropped without a
			// tool message.
			o.log.Debug().Str("tool", call.Name).Msg("unknown tool requested, skipping")
			continue
		}

		st.History = append(st.History, toolMessage(call.ID, renderOutcome(outcome)))
	}
}

func (o *Orchestrator) finalizeAnswer(st *graphState) (contractx.AskResult, error) {
	if st == nil {
		return contractx.AskResult{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	return contractx.AskResult{
		Answer:     strings.TrimSpace(st.Answer),
		Iterations: st.Iterations,
		Note:       st.Note,
	}, nil
}

func toolMessage(callID, content string) contractx.Message {
	return contractx.Message{
		Role:       contractx.RoleTool,
		Content:    content,
		ToolCallID: callID,
	}
}

func parseToolArgs(raw string) (map[string]any, error) {
	args := map[string]any{}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %v", err)
	}
	return args, nil
}

func renderOutcome(outcome contractx.Outcome) string {
	if !outcome.Success {
		return toolErrorPrefix + outcome.Error
	}
	raw, err := json.Marshal(outcome)
	if err != nil {
		return toolErrorPrefix + err.Error()
	}
	return string(raw)
}
