package testutil_test

import (
	"testing"

	"github.com/dan-strohschein/resilientdb/testutil"
)

func TestRowsFactory_Build(t *testing.T) {
	factory := testutil.NewRowsFactory([]string{"id", "name", "active"}, int64(0), "anon", true)

	row := factory.Build(testutil.WithField("name", "Alice"))
	if row[1] != "Alice" || row[2] != true {
		t.Errorf("unexpected row: %v", row)
	}

	row = factory.Build(testutil.WithFields(map[string]interface{}{"active": false, "missing": 1}))
	if row[2] != false || len(row) != 3 {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestRowsFactory_BuildList(t *testing.T) {
	factory := testutil.NewRowsFactory([]string{"id", "name"}, int64(0), "anon")

	rows := factory.BuildList(3)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] == rows[1][0] {
		t.Error("expected unique ids")
	}

	set := factory.Rows(rows...)
	if len(set.Values) != 3 || set.Columns[0] != "id" {
		t.Errorf("unexpected result set: %+v", set)
	}
}

func TestSequenceName(t *testing.T) {
	a := testutil.SequenceName("user")
	b := testutil.SequenceName("user")
	if a == b {
		t.Errorf("expected unique names, got %q twice", a)
	}
}
