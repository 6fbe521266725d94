package engine

import (
	"fmt"
	"time"

	"github.com/picodb/picodb/internal/storage"
)

// Operations is the engine's operation surface. Front ends and middleware
// talk to this interface so cross-cutting concerns stay composable wrappers
// instead of being baked into the engine.
type Operations interface {
	ListTables() []TableInfo
	CreateTable(name string, cols []Column) error
	DropTable(name string) error
	Insert(table string, values map[string]string) (Row, error)
	Select(table string, where *Predicate) (*SelectResult, error)
	Update(table string, setValues map[string]string, where *Predicate) (int, error)
	Delete(table string, where *Predicate) (int, error)
}

var _ Operations = (*Engine)(nil)

// TimingFunc receives the operation name and its wall-clock duration.
type TimingFunc func(op string, elapsed time.Duration)

// Instrumented wraps Operations with best-effort audit logging and optional
// timing. Audit failures never surface; timing is reported even when the
// operation errors.
type Instrumented struct {
	next   Operations
	audit  *storage.AuditLog
	timing TimingFunc
}

// Instrument composes audit logging and timing around ops. Both audit and
// timing may be nil.
func Instrument(next Operations, audit *storage.AuditLog, timing TimingFunc) *Instrumented {
	return &Instrumented{next: next, audit: audit, timing: timing}
}

func (in *Instrumented) observe(op, detail string) func() {
	in.audit.Record(op, detail)
	if in.timing == nil {
		return func() {}
	}
	start := time.Now()
	return func() { in.timing(op, time.Since(start)) }
}

func (in *Instrumented) ListTables() []TableInfo {
	defer in.observe("list_tables", "")()
	return in.next.ListTables()
}

func (in *Instrumented) CreateTable(name string, cols []Column) error {
	defer in.observe("create_table", "table="+name)()
	return in.next.CreateTable(name, cols)
}

func (in *Instrumented) DropTable(name string) error {
	defer in.observe("drop_table", "table="+name)()
	return in.next.DropTable(name)
}

func (in *Instrumented) Insert(table string, values map[string]string) (Row, error) {
	defer in.observe("insert", fmt.Sprintf("table=%s fields=%d", table, len(values)))()
	return in.next.Insert(table, values)
}

func (in *Instrumented) Select(table string, where *Predicate) (*SelectResult, error) {
	defer in.observe("select", "table="+table+" where="+whereDetail(where))()
	return in.next.Select(table, where)
}

func (in *Instrumented) Update(table string, setValues map[string]string, where *Predicate) (int, error) {
	defer in.observe("update", "table="+table+" where="+whereDetail(where))()
	return in.next.Update(table, setValues, where)
}

func (in *Instrumented) Delete(table string, where *Predicate) (int, error) {
	defer in.observe("delete", "table="+table+" where="+whereDetail(where))()
	return in.next.Delete(table, where)
}

func whereDetail(where *Predicate) string {
	if where == nil || where.MatchAll() {
		return "<all>"
	}
	return where.Signature()
}
