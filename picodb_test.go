package picodb_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/picodb/picodb"
)

func Example() {
	dir, err := os.MkdirTemp("", "picodb_example_*")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	db, err := picodb.Open(dir)
	if err != nil {
		fmt.Println(err)
		return
	}
	picodb.Exec(db, `create_table users name:str age:int`)
	picodb.Exec(db, `insert users name="Alice" age=30`)
	res, _ := picodb.Exec(db, `select users where age>=30`)
	for _, row := range res.Select.Rows {
		fmt.Println(row["name"], row["age"])
	}
	// Output: Alice 30
}

// TestEndToEnd walks the documented workflow through the public API: create
// a table, insert, filter, update, delete, and check persistence across a
// reopen.
func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	db, err := picodb.Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	steps := []string{
		`create_table users name:str age:int is_active:bool`,
		`insert users name="Alice" age=30 is_active=true`,
		`insert users name="Bob" age=25 is_active=false`,
		`insert users name="Carol" age=41 is_active=yes`,
	}
	for _, line := range steps {
		if _, err := picodb.Exec(db, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}

	res, err := picodb.Exec(db, `select users where age>=30 and is_active=true`)
	if err != nil {
		t.Fatal(err)
	}
	rows := res.Select.Rows
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	for _, r := range rows {
		if r["is_active"] != true {
			t.Fatalf("filter leaked row %v", r)
		}
	}

	if _, err := picodb.Exec(db, `update users set age=26 where name="Bob"`); err != nil {
		t.Fatal(err)
	}
	if _, err := picodb.Exec(db, `delete users where name="Carol"`); err != nil {
		t.Fatal(err)
	}

	// Reopen and verify state survived.
	db2, err := picodb.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	res2, err := picodb.Exec(db2, `select users`)
	if err != nil {
		t.Fatal(err)
	}
	if len(res2.Select.Rows) != 2 {
		t.Fatalf("rows after reopen = %v", res2.Select.Rows)
	}
	byName := map[string]picodb.Row{}
	for _, r := range res2.Select.Rows {
		byName[r["name"].(string)] = r
	}
	if byName["Bob"]["age"] != 26 {
		t.Fatalf("Bob = %v", byName["Bob"])
	}
	if _, ok := byName["Carol"]; ok {
		t.Fatal("Carol should be deleted")
	}

	// Ids keep counting after reopen.
	ins, err := picodb.Exec(db2, `insert users name="Dave" age=50 is_active=false`)
	if err != nil {
		t.Fatal(err)
	}
	if ins.Row["id"] != 4 {
		t.Fatalf("id = %v, want 4", ins.Row["id"])
	}
}

func TestErrorKinds(t *testing.T) {
	db, err := picodb.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := picodb.Exec(db, `select users`); !errors.Is(err, picodb.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	if _, err := picodb.Exec(db, `create_table users id:int`); !errors.Is(err, picodb.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if _, err := picodb.Exec(db, `nonsense`); !errors.Is(err, picodb.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if _, err := picodb.Exec(db, `create_table users name:str`); err != nil {
		t.Fatal(err)
	}
	if _, err := picodb.Exec(db, `select users where name~'x'`); !errors.Is(err, picodb.ErrWhere) {
		t.Fatalf("expected ErrWhere, got %v", err)
	}
	if _, err := picodb.Exec(db, `insert users name='x' extra=1`); !errors.Is(err, picodb.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := picodb.Exec(db, `create_table users name:str`); !errors.Is(err, picodb.ErrTableExists) {
		t.Fatalf("expected ErrTableExists, got %v", err)
	}
}

func TestProgrammaticFilters(t *testing.T) {
	db, err := picodb.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{
		`create_table nums n:int`,
		`insert nums n=1`,
		`insert nums n=5`,
		`insert nums n=9`,
	} {
		if _, err := picodb.Exec(db, line); err != nil {
			t.Fatal(err)
		}
	}

	pred, err := picodb.CompileWhere(`n >= 2 and n <= 8`)
	if err != nil {
		t.Fatal(err)
	}
	res, err := db.Select("nums", pred)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["n"] != 5 {
		t.Fatalf("rows = %v", res.Rows)
	}

	// The same filter from pre-split conditions.
	var conds []picodb.Condition
	for _, phrase := range []string{"n>=2", "n<=8"} {
		c, err := picodb.ParseComparison(phrase)
		if err != nil {
			t.Fatal(err)
		}
		conds = append(conds, c)
	}
	pred2, err := picodb.CompileConjunction(conds)
	if err != nil {
		t.Fatal(err)
	}
	res2, err := db.Select("nums", pred2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res2.Rows) != 1 || res2.Rows[0]["n"] != 5 {
		t.Fatalf("rows = %v", res2.Rows)
	}
}
