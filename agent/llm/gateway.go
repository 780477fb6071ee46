package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	contractx "github.com/lamnv/todoagent/agent/contract"
	openrouterx "github.com/lamnv/todoagent/pkg/openrouter"
)

// Gateway speaks the chat completion protocol for one model turn: it ships
// the accumulated history plus the tool catalog and hands back the assistant
// message, including any requested tool calls.
type Gateway struct {
	client      *openaisdk.Client
	model       string
	maxTokens   int
	temperature float64
}

var _ contractx.ModelGateway = (*Gateway)(nil)

func NewGateway(client *openaisdk.Client, cfg openrouterx.Config) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("model is required")
	}

	return &Gateway{
		client:      client,
		model:       model,
		maxTokens:   cfg.MaxCompletionToken,
		temperature: cfg.Temperature,
	}, nil
}

func (g *Gateway) Complete(
	ctx context.Context,
	history []contractx.Message,
	tools []contractx.ToolSpec,
) (contractx.Message, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    g.model,
		Messages: convertHistory(history),
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(g.maxTokens))
	}
	if g.temperature > 0 {
		params.Temperature = openaisdk.Float(g.temperature)
	}
	if len(tools) > 0 {
		converted := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
		for _, spec := range tools {
			converted = append(converted, convertTool(spec))
		}
		params.Tools = converted
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.Message{}, fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(completion.Choices) == 0 {
		return contractx.Message{}, fmt.Errorf("%w: completion has no choices", contractx.ErrModelInvoke)
	}

	choice := completion.Choices[0].Message
	msg := contractx.Message{
		Role:    contractx.RoleAssistant,
		Content: choice.Content,
	}
	for _, tc := range choice.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, contractx.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg, nil
}

func convertHistory(history []contractx.Message) []openaisdk.ChatCompletionMessageParamUnion {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		messages = append(messages, convertMessage(m))
	}
	return messages
}

func convertMessage(msg contractx.Message) openaisdk.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case contractx.RoleSystem:
		return openaisdk.SystemMessage(msg.Content)
	case contractx.RoleAssistant:
		if len(msg.ToolCalls) > 0 {
			toolCalls := make([]openaisdk.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				toolCalls = append(toolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			assistant := openaisdk.ChatCompletionAssistantMessageParam{
				ToolCalls: toolCalls,
			}
			if msg.Content != "" {
				assistant.Content = openaisdk.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(msg.Content),
				}
			}
			return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
		}
		return openaisdk.AssistantMessage(msg.Content)
	case contractx.RoleTool:
		return openaisdk.ToolMessage(msg.Content, msg.ToolCallID)
	default:
		return openaisdk.UserMessage(msg.Content)
	}
}

func convertTool(spec contractx.ToolSpec) openaisdk.ChatCompletionToolParam {
	raw, _ := json.Marshal(spec.Parameters)
	var parameters openaisdk.FunctionParameters
	_ = json.Unmarshal(raw, &parameters)

	return openaisdk.ChatCompletionToolParam{
		Type: "function",
		Function: openaisdk.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openaisdk.String(spec.Description),
			Parameters:  parameters,
		},
	}
}
