package tool

import (
	"fmt"

	todox "github.com/lamnv/todoagent/agent/todo"
)

type addTodoInput struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

func (in addTodoInput) validate() error {
	if err := todox.ValidateTitle(in.Title); err != nil {
		return err
	}
	return todox.ValidateDate(in.Date)
}

type addManyInput struct {
	Items []addTodoInput `json:"items"`
}

func (in addManyInput) validate() ([]todox.NewTask, error) {
	if in.Items == nil {
		return nil, fmt.Errorf("items is required")
	}
	items := make([]todox.NewTask, 0, len(in.Items))
	for i, item := range in.Items {
		if err := item.validate(); err != nil {
			return nil, fmt.Errorf("item %d: %v", i+1, err)
		}
		items = append(items, todox.NewTask{Title: item.Title, Date: item.Date})
	}
	return items, nil
}

type updateTodoInput struct {
	ID    *int    `json:"id"`
	Title *string `json:"title"`
	Date  *string `json:"date"`
	Done  *bool   `json:"done"`
}

// validate builds the tri-state patch: nil pointers stay "not provided",
// while present fields are checked and applied even when false or zero.
func (in updateTodoInput) validate() (todox.Patch, error) {
	if in.ID == nil {
		return todox.Patch{}, fmt.Errorf("id is required")
	}
	if in.Title != nil {
		if err := todox.ValidateTitle(*in.Title); err != nil {
			return todox.Patch{}, err
		}
	}
	if in.Date != nil {
		if err := todox.ValidateDate(*in.Date); err != nil {
			return todox.Patch{}, err
		}
	}
	return todox.Patch{Title: in.Title, Date: in.Date, Done: in.Done}, nil
}

type deleteTodoInput struct {
	ID *int `json:"id"`
}

type deleteManyInput struct {
	IDs []int `json:"ids"`
}
