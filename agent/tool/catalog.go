package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	contractx "github.com/lamnv/todoagent/agent/contract"
	todox "github.com/lamnv/todoagent/agent/todo"
)

const (
	ToolGetTodos       = "get_todos"
	ToolAddTodo        = "add_todo"
	ToolAddManyTodo    = "add_many_todo"
	ToolUpdateTodo     = "update_todo"
	ToolDeleteTodo     = "delete_todo"
	ToolDeleteManyTodo = "delete_many_todo"
)

type executor func(ctx context.Context, args map[string]any) contractx.Outcome

type entry struct {
	spec contractx.ToolSpec
	run  executor
}

// Catalog is the fixed tool registry: each entry wraps exactly one store
// operation. It is built once at startup and read-only afterwards.
type Catalog struct {
	entries []entry
	byName  map[string]executor
}

var _ contractx.ToolCatalog = (*Catalog)(nil)

func NewCatalog(store *todox.Store) (*Catalog, error) {
	if store == nil {
		return nil, errors.New("todo store is required")
	}

	c := &Catalog{byName: map[string]executor{}}

	c.register(contractx.ToolSpec{
		Name:        ToolGetTodos,
		Description: "List every todo in the task list.",
		Parameters:  obj(nil),
	}, func(ctx context.Context, _ map[string]any) contractx.Outcome {
		return contractx.SuccessOutcome(map[string]any{"todos": store.List(ctx)})
	})

	c.register(contractx.ToolSpec{
		Name:        ToolAddTodo,
		Description: "Add a new todo with a title and a date.",
		Parameters: objReq(map[string]any{
			"title": prop("string", "Todo title"),
			"date":  prop("string", "Date in YYYY-MM-DD format"),
		}, "title", "date"),
	}, func(ctx context.Context, args map[string]any) contractx.Outcome {
		in, err := decodeArgs[addTodoInput](args)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		if err := in.validate(); err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		task, err := store.Create(ctx, todox.NewTask{Title: in.Title, Date: in.Date})
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		return contractx.SuccessOutcome(map[string]any{"todo": task})
	})

	c.register(contractx.ToolSpec{
		Name:        ToolAddManyTodo,
		Description: "Add several todos at once. Duplicates within the batch or against existing todos are skipped, not errors.",
		Parameters: objReq(map[string]any{
			"items": map[string]any{
				"type":        "array",
				"description": "Todos to add",
				"items": objReq(map[string]any{
					"title": prop("string", "Todo title"),
					"date":  prop("string", "Date in YYYY-MM-DD format"),
				}, "title", "date"),
			},
		}, "items"),
	}, func(ctx context.Context, args map[string]any) contractx.Outcome {
		in, err := decodeArgs[addManyInput](args)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		items, err := in.validate()
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		result, err := store.CreateMany(ctx, items)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		return contractx.SuccessOutcome(map[string]any{
			"created": result.Created,
			"skipped": result.Skipped,
		})
	})

	c.register(contractx.ToolSpec{
		Name:        ToolUpdateTodo,
		Description: "Update a todo by id. Only the provided fields change; done can be set to true or false explicitly.",
		Parameters: objReq(map[string]any{
			"id":    prop("integer", "Id of the todo to update"),
			"title": prop("string", "New title"),
			"date":  prop("string", "New date in YYYY-MM-DD format"),
			"done":  prop("boolean", "Completion flag"),
		}, "id"),
	}, func(ctx context.Context, args map[string]any) contractx.Outcome {
		in, err := decodeArgs[updateTodoInput](args)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		patch, err := in.validate()
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		task, err := store.Update(ctx, *in.ID, patch)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		return contractx.SuccessOutcome(map[string]any{"todo": task})
	})

	c.register(contractx.ToolSpec{
		Name:        ToolDeleteTodo,
		Description: "Delete a todo by id.",
		Parameters: objReq(map[string]any{
			"id": prop("integer", "Id of the todo to delete"),
		}, "id"),
	}, func(ctx context.Context, args map[string]any) contractx.Outcome {
		in, err := decodeArgs[deleteTodoInput](args)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		if in.ID == nil {
			return contractx.FailureOutcome("id is required")
		}
		task, err := store.Delete(ctx, *in.ID)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		return contractx.SuccessOutcome(map[string]any{"deleted": task})
	})

	c.register(contractx.ToolSpec{
		Name:        ToolDeleteManyTodo,
		Description: "Delete several todos by id in one call.",
		Parameters: objReq(map[string]any{
			"ids": map[string]any{
				"type":        "array",
				"description": "Ids of the todos to delete",
				"items":       map[string]any{"type": "integer"},
			},
		}, "ids"),
	}, func(ctx context.Context, args map[string]any) contractx.Outcome {
		in, err := decodeArgs[deleteManyInput](args)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		if in.IDs == nil {
			return contractx.FailureOutcome("ids is required")
		}
		removed, err := store.DeleteMany(ctx, in.IDs)
		if err != nil {
			return contractx.FailureOutcome(err.Error())
		}
		return contractx.SuccessOutcome(map[string]any{"deleted": removed})
	})

	return c, nil
}

func (c *Catalog) register(spec contractx.ToolSpec, run executor) {
	c.entries = append(c.entries, entry{spec: spec, run: run})
	c.byName[spec.Name] = run
}

// Specs returns the full catalog in registration order.
func (c *Catalog) Specs() []contractx.ToolSpec {
	specs := make([]contractx.ToolSpec, 0, len(c.entries))
	for _, e := range c.entries {
		specs = append(specs, e.spec)
	}
	return specs
}

// Execute runs one tool. ok=false means the name is not in the catalog.
// Every failure, validation included, comes back as a success=false Outcome.
func (c *Catalog) Execute(ctx context.Context, name string, args map[string]any) (contractx.Outcome, bool) {
	run, ok := c.byName[name]
	if !ok {
		return contractx.Outcome{}, false
	}
	return run(ctx, args), true
}

// decodeArgs round-trips the loosely typed argument map through JSON into a
// typed input struct, rejecting wrong field types at the registry boundary.
func decodeArgs[T any](args map[string]any) (T, error) {
	var in T
	raw, err := json.Marshal(args)
	if err != nil {
		return in, fmt.Errorf("invalid arguments: %v", err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("invalid arguments: %v", err)
	}
	return in, nil
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func obj(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func objReq(properties map[string]any, required ...string) map[string]any {
	s := obj(properties)
	s["required"] = required
	return s
}
