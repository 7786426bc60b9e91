package drift

import (
	"encoding/json"
	"testing"

	"github.com/relstore/relstore/internal/model"
)

func musicFamily() *model.SchemaFamily {
	schema := func(name string, cols map[string]model.Type, required ...string) *model.Schema {
		s := &model.Schema{
			Name:        name,
			PK:          "id",
			ColumnTypes: cols,
			Defaults:    map[string]model.Value{},
			Required:    map[string]struct{}{},
		}
		for col, t := range cols {
			s.Defaults[col] = model.ZeroValue(t)
		}
		for _, col := range required {
			s.Required[col] = struct{}{}
		}
		return s
	}
	return &model.SchemaFamily{
		Schemas: map[string]*model.Schema{
			"artist": schema("artist", map[string]model.Type{"id": model.TypeInteger, "name": model.TypeText}, "id", "name"),
			"song": schema("song", map[string]model.Type{
				"id": model.TypeInteger, "name": model.TypeText, "artist_id": model.TypeInteger,
			}, "id", "name", "artist_id"),
		},
		Parents:        map[string]map[string]struct{}{"song": {"artist": {}}},
		Children:       map[string]map[string]struct{}{"artist": {"song": {}}},
		Peers:          map[string]map[string]struct{}{},
		PeerLinkTables: map[string]string{},
	}
}

func categories(report Report) map[string]Kind {
	out := make(map[string]Kind, len(report.Items))
	for _, item := range report.Items {
		out[item.Category] = item.Kind
	}
	return out
}

func TestDiffNoDrift(t *testing.T) {
	report := Diff(musicFamily(), musicFamily())
	if report.HasDrift {
		t.Errorf("identical families should not drift: %+v", report.Items)
	}
}

func TestDiffTableRemoved(t *testing.T) {
	live := musicFamily()
	delete(live.Schemas, "song")
	delete(live.Parents, "song")
	delete(live.Children, "artist")

	report := Diff(musicFamily(), live)
	if !report.HasBreaking {
		t.Fatal("removed table should be breaking")
	}
	if kind, ok := categories(report)["table_removed"]; !ok || kind != Breaking {
		t.Errorf("items = %+v", report.Items)
	}
}

func TestDiffColumnChanges(t *testing.T) {
	live := musicFamily()
	song := live.Schemas["song"]
	delete(song.ColumnTypes, "name")
	delete(song.Required, "name")
	song.ColumnTypes["memo"] = model.TypeText

	report := Diff(musicFamily(), live)
	got := categories(report)
	if got["column_removed"] != Breaking {
		t.Errorf("column_removed = %v", got["column_removed"])
	}
	if got["column_added"] != Additive {
		t.Errorf("column_added = %v", got["column_added"])
	}
	if report.BreakingCount != 1 || report.AdditiveCount != 1 {
		t.Errorf("counts = %d breaking, %d additive", report.BreakingCount, report.AdditiveCount)
	}
}

func TestDiffTypeChanged(t *testing.T) {
	live := musicFamily()
	live.Schemas["song"].ColumnTypes["artist_id"] = model.TypeText

	report := Diff(musicFamily(), live)
	if categories(report)["type_changed"] != Breaking {
		t.Errorf("items = %+v", report.Items)
	}
}

func TestDiffRequiredChanged(t *testing.T) {
	snapshot := musicFamily()
	delete(snapshot.Schemas["song"].Required, "name")

	report := Diff(snapshot, musicFamily())
	if categories(report)["required_changed"] != Breaking {
		t.Errorf("tightening should be breaking: %+v", report.Items)
	}

	report = Diff(musicFamily(), snapshot)
	if categories(report)["required_changed"] != Additive {
		t.Errorf("loosening should be additive: %+v", report.Items)
	}
}

func TestDiffRelationChanges(t *testing.T) {
	live := musicFamily()
	delete(live.Parents, "song")
	live.Peers = map[string]map[string]struct{}{
		"artist": {"song": {}},
		"song":   {"artist": {}},
	}

	report := Diff(musicFamily(), live)
	got := categories(report)
	if got["parent_removed"] != Breaking {
		t.Errorf("parent_removed = %v", got["parent_removed"])
	}
	if got["peer_added"] != Additive {
		t.Errorf("peer_added = %v", got["peer_added"])
	}
}

func TestDiffAgainstDumpRoundTrip(t *testing.T) {
	live := musicFamily()
	dump, err := json.Marshal(live)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snapshot model.SchemaFamily
	if err := json.Unmarshal(dump, &snapshot); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	report := Diff(&snapshot, live)
	if report.HasDrift {
		t.Errorf("dump round trip should not drift: %+v", report.Items)
	}
}
