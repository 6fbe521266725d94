package engine

import (
	"errors"
	"testing"
)

func TestParseCommandCreateTable(t *testing.T) {
	cmd, err := ParseCommand("create_table users name:str age:int")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "create_table" || cmd.Table != "users" {
		t.Fatalf("got %+v", cmd)
	}
	if len(cmd.Columns) != 2 || cmd.Columns[0].Name != "name" || cmd.Columns[1].Type != TypeInt {
		t.Fatalf("columns = %+v", cmd.Columns)
	}
}

func TestParseCommandInsert(t *testing.T) {
	cmd, err := ParseCommand(`insert users name="Alice Smith" age=30`)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "insert" || cmd.Table != "users" {
		t.Fatalf("got %+v", cmd)
	}
	if cmd.Values["name"] != "Alice Smith" {
		t.Fatalf("quoted value with spaces: got %q", cmd.Values["name"])
	}
	if cmd.Values["age"] != "30" {
		t.Fatalf("age = %q", cmd.Values["age"])
	}
}

func TestParseCommandSelect(t *testing.T) {
	cmd, err := ParseCommand("select users where age>=30 and name='x'")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "select" || cmd.Table != "users" {
		t.Fatalf("got %+v", cmd)
	}
	if cmd.Where != "age>=30 and name='x'" {
		t.Fatalf("where = %q", cmd.Where)
	}

	cmd, err = ParseCommand("select users")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Where != "" {
		t.Fatalf("expected empty where, got %q", cmd.Where)
	}
}

func TestParseCommandUpdate(t *testing.T) {
	cmd, err := ParseCommand("update users set age=31, name='Bob, Jr' where id=1")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "update" || cmd.Table != "users" {
		t.Fatalf("got %+v", cmd)
	}
	if cmd.SetValues["age"] != "31" {
		t.Fatalf("age = %q", cmd.SetValues["age"])
	}
	// Comma inside quotes does not split the assignment list.
	if cmd.SetValues["name"] != "'Bob, Jr'" {
		t.Fatalf("name = %q", cmd.SetValues["name"])
	}
	if cmd.Where != "id=1" {
		t.Fatalf("where = %q", cmd.Where)
	}
}

func TestParseCommandDelete(t *testing.T) {
	cmd, err := ParseCommand("delete users where id=1")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "delete" || cmd.Where != "id=1" {
		t.Fatalf("got %+v", cmd)
	}

	cmd, err = ParseCommand("delete users")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Where != "" {
		t.Fatalf("unfiltered delete should have empty where, got %q", cmd.Where)
	}
}

func TestParseCommandKeywordsInQuotes(t *testing.T) {
	// "where" inside a quoted value is data, not a clause.
	cmd, err := ParseCommand(`update places set note='somewhere over there' where id=2`)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.SetValues["note"] != "'somewhere over there'" {
		t.Fatalf("note = %q", cmd.SetValues["note"])
	}
	if cmd.Where != "id=2" {
		t.Fatalf("where = %q", cmd.Where)
	}
}

func TestParseCommandSimple(t *testing.T) {
	for line, want := range map[string]string{
		"exit":        "exit",
		"quit":        "exit",
		"help":        "help",
		"list_tables": "list_tables",
		"  HELP  ":    "help",
	} {
		cmd, err := ParseCommand(line)
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", line, err)
		}
		if cmd.Name != want {
			t.Fatalf("ParseCommand(%q).Name = %q, want %q", line, cmd.Name, want)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	cases := []string{
		"",
		"frobnicate users",
		"create_table users",       // no columns
		"create_table users name",  // not field:type
		"insert users",             // no values
		"insert users nameAlice",   // not field=value
		"select",                   // no table
		"select users extra",       // trailing token
		"select users where",       // empty where clause
		"update users",             // no set
		"update users set",         // empty set clause
		"update users where id=1",  // set required
		"delete",                   // no table
		`insert users name="open`,  // unterminated quote
		"drop_table",               // no table
		"drop_table a b",           // too many
	}
	for _, line := range cases {
		if _, err := ParseCommand(line); !errors.Is(err, ErrParse) && !errors.Is(err, ErrValidation) {
			t.Errorf("ParseCommand(%q): expected a parse error, got %v", line, err)
		}
	}
}
