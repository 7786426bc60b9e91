package query

import (
	"reflect"
	"testing"

	"github.com/relstore/relstore/internal/model"
)

func vals(vs ...model.Value) []model.Value { return vs }

func TestInThem(t *testing.T) {
	got := InThem("id", vals(model.Int(1), model.Int(2), model.Int(3)))
	if got.Clause != "id IN (?, ?, ?)" {
		t.Errorf("clause = %q", got.Clause)
	}
	if !reflect.DeepEqual(got.Args, vals(model.Int(1), model.Int(2), model.Int(3))) {
		t.Errorf("args = %v", got.Args)
	}
}

func TestStandardize(t *testing.T) {
	tests := []struct {
		name string
		in   Where
		link string
		want string
	}{
		{"non-empty with link", Where{Clause: "id = ?"}, "AND", "AND id = ?"},
		{"non-empty without link", Where{Clause: " id = ? "}, "", "id = ?"},
		{"empty clause", Where{}, "WHERE", ""},
		{"whitespace clause", Where{Clause: "   "}, "WHERE", ""},
	}
	for _, tt := range tests {
		got := Standardize(tt.in, tt.link)
		if got.Clause != tt.want {
			t.Errorf("%s: clause = %q, want %q", tt.name, got.Clause, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	a := Where{Clause: "id = ?", Args: vals(model.Int(1))}
	b := Where{Clause: "name = ?", Args: vals(model.Text("x"))}

	got := Merge(a, b, "AND")
	if got.Clause != "(id = ? AND name = ?)" {
		t.Errorf("clause = %q", got.Clause)
	}
	if !reflect.DeepEqual(got.Args, vals(model.Int(1), model.Text("x"))) {
		t.Errorf("args = %v", got.Args)
	}

	// One empty side wraps the other alone.
	got = Merge(a, Where{}, "AND")
	if got.Clause != "(id = ?)" {
		t.Errorf("clause = %q", got.Clause)
	}

	got = Merge(Where{}, b, "OR")
	if got.Clause != "(name = ?)" {
		t.Errorf("clause = %q", got.Clause)
	}

	// Both empty stays empty, never a syntactically invalid fragment.
	got = Merge(Where{}, Where{}, "AND")
	if !got.IsEmpty() {
		t.Errorf("merge of empties should be empty, got %q", got.Clause)
	}

	// Repeated merges keep precedence through parenthesization.
	nested := Merge(Merge(a, b, "OR"), a, "AND")
	if nested.Clause != "((id = ? OR name = ?) AND id = ?)" {
		t.Errorf("nested clause = %q", nested.Clause)
	}
}

func TestInThemAnd(t *testing.T) {
	extra := Where{Clause: "memo = ?", Args: vals(model.Text("big"))}
	got := InThemAnd("id", vals(model.Int(1), model.Int(2)), extra)
	if got.Clause != "(id IN (?, ?) AND memo = ?)" {
		t.Errorf("clause = %q", got.Clause)
	}
	if !reflect.DeepEqual(got.Args, vals(model.Int(1), model.Int(2), model.Text("big"))) {
		t.Errorf("args = %v", got.Args)
	}
}

func fkFamily() *model.SchemaFamily {
	schema := func(name string) *model.Schema {
		return &model.Schema{
			Name: name, PK: "id",
			ColumnTypes: map[string]model.Type{"id": model.TypeInteger},
			Defaults:    map[string]model.Value{"id": model.Int(0)},
			Required:    map[string]struct{}{"id": {}},
		}
	}
	return &model.SchemaFamily{
		Schemas: map[string]*model.Schema{"artist": schema("artist"), "album": schema("album")},
	}
}

func TestFKUnion(t *testing.T) {
	family := fkFamily()
	relMap := map[string][]model.Value{
		"artist": vals(model.Int(1)),
		"album":  vals(model.Int(2), model.Int(3)),
	}
	extra := Where{Clause: "memo = ?", Args: vals(model.Text("m"))}

	got, err := FKUnion(family, relMap, extra)
	if err != nil {
		t.Fatalf("FKUnion: %v", err)
	}
	// Groups are visited in sorted table-name order.
	want := "(((album_id IN (?, ?)) OR artist_id IN (?)) AND memo = ?)"
	if got.Clause != want {
		t.Errorf("clause = %q, want %q", got.Clause, want)
	}
	wantArgs := vals(model.Int(2), model.Int(3), model.Int(1), model.Text("m"))
	if !reflect.DeepEqual(got.Args, wantArgs) {
		t.Errorf("args = %v, want %v", got.Args, wantArgs)
	}
}

func TestFKUnionUnknownTable(t *testing.T) {
	_, err := FKUnion(fkFamily(), map[string][]model.Value{"ghost": vals(model.Int(1))}, Where{})
	if err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestPeerExists(t *testing.T) {
	bond := Where{Clause: "album_id IN (?)", Args: vals(model.Int(9))}
	got := PeerExists("rel_album_song", "song_id", "song", "id", bond)
	want := "EXISTS (SELECT 1 FROM rel_album_song WHERE song_id = song.id AND album_id IN (?))"
	if got.Clause != want {
		t.Errorf("clause = %q, want %q", got.Clause, want)
	}
	if !reflect.DeepEqual(got.Args, vals(model.Int(9))) {
		t.Errorf("args = %v", got.Args)
	}

	got = PeerExists("rel_album_song", "song_id", "song", "id", Where{})
	want = "EXISTS (SELECT 1 FROM rel_album_song WHERE song_id = song.id)"
	if got.Clause != want {
		t.Errorf("clause without bond = %q, want %q", got.Clause, want)
	}
}

func TestCheckByClause(t *testing.T) {
	valid := []string{"", "name", "name ASC", "name, memo DESC"}
	for _, s := range valid {
		if err := CheckByClause(s); err != nil {
			t.Errorf("CheckByClause(%q) unexpected error: %v", s, err)
		}
	}

	invalid := []string{
		"name; --drop",
		"name /* x */",
		"name\nDESC",
		"name\tASC",
		"a@b",
		"a*b",
		"a[0]",
	}
	for _, s := range invalid {
		if err := CheckByClause(s); err == nil {
			t.Errorf("CheckByClause(%q) should fail", s)
		}
	}
}
