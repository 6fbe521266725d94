package engine

import (
	"fmt"
)

// Result is the outcome of one executed command, rendered by the front end.
// Exactly one payload field is meaningful per Kind.
type Result struct {
	Kind    string // ok, row, rows, count, tables, help, exit, canceled
	Message string
	Row     Row
	Select  *SelectResult
	Count   int
	Tables  []TableInfo
}

// ConfirmFunc asks the user to confirm a destructive action. Returning
// false cancels it.
type ConfirmFunc func(prompt string) bool

// Executor dispatches parsed commands against an operation surface and
// applies the confirmation policy for unfiltered destructive commands.
type Executor struct {
	Ops Operations
	// Confirm is consulted before drop_table and before delete without a
	// where clause when RequireConfirm is set. A nil Confirm allows.
	Confirm        ConfirmFunc
	RequireConfirm bool
}

// Execute runs one command. Domain errors come back wrapped in their kind;
// the caller renders them as a single line.
func (x *Executor) Execute(cmd *Command) (*Result, error) {
	switch cmd.Name {
	case "exit":
		return &Result{Kind: "exit"}, nil
	case "help":
		return &Result{Kind: "help", Message: HelpText}, nil
	case "list_tables":
		return &Result{Kind: "tables", Tables: x.Ops.ListTables()}, nil
	case "create_table":
		if err := x.Ops.CreateTable(cmd.Table, cmd.Columns); err != nil {
			return nil, err
		}
		return &Result{Kind: "ok", Message: fmt.Sprintf("table %q created", cmd.Table)}, nil
	case "drop_table":
		if !x.confirmed(fmt.Sprintf("Drop table %q?", cmd.Table)) {
			return &Result{Kind: "canceled", Message: "canceled"}, nil
		}
		if err := x.Ops.DropTable(cmd.Table); err != nil {
			return nil, err
		}
		return &Result{Kind: "ok", Message: fmt.Sprintf("table %q dropped", cmd.Table)}, nil
	case "insert":
		row, err := x.Ops.Insert(cmd.Table, cmd.Values)
		if err != nil {
			return nil, err
		}
		return &Result{
			Kind:    "row",
			Row:     row,
			Message: fmt.Sprintf("inserted row id=%v", row[ReservedIDField]),
		}, nil
	case "select":
		where, err := CompileWhere(cmd.Where)
		if err != nil {
			return nil, err
		}
		res, err := x.Ops.Select(cmd.Table, where)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: "rows", Select: res}, nil
	case "update":
		where, err := CompileWhere(cmd.Where)
		if err != nil {
			return nil, err
		}
		n, err := x.Ops.Update(cmd.Table, cmd.SetValues, where)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: "count", Count: n, Message: fmt.Sprintf("updated rows: %d", n)}, nil
	case "delete":
		where, err := CompileWhere(cmd.Where)
		if err != nil {
			return nil, err
		}
		if where.MatchAll() && !x.confirmed("Delete ALL rows?") {
			return &Result{Kind: "canceled", Message: "canceled"}, nil
		}
		n, err := x.Ops.Delete(cmd.Table, where)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: "count", Count: n, Message: fmt.Sprintf("deleted rows: %d", n)}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrParse, cmd.Name)
}

func (x *Executor) confirmed(prompt string) bool {
	if !x.RequireConfirm || x.Confirm == nil {
		return true
	}
	return x.Confirm(prompt)
}
