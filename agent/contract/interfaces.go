package contract

import "context"

// ModelGateway is one chat completion call: full history and tool catalog in,
// assistant message (text and/or tool calls) out. A nil/empty tools slice
// means the model is not offered any tools for that turn.
type ModelGateway interface {
	Complete(ctx context.Context, history []Message, tools []ToolSpec) (Message, error)
}

// ToolCatalog is the fixed set of capabilities the model may invoke.
// Execute reports ok=false for names not in the catalog; it never returns an
// error; every failure is folded into the Outcome.
type ToolCatalog interface {
	Specs() []ToolSpec
	Execute(ctx context.Context, name string, args map[string]any) (outcome Outcome, ok bool)
}
