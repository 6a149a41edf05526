package domain

import (
	"encoding/json"
	"testing"
)

func TestRefUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int64
		wantErr bool
	}{
		{"bare number", `7`, 7, false},
		{"bare string", `"42"`, 42, false},
		{"object numeric id", `{"id": 3, "name": "Action"}`, 3, false},
		{"object string id", `{"id": "11", "name": "PG-13"}`, 11, false},
		{"fractional id", `3.5`, 0, true},
		{"non-numeric string", `"abc"`, 0, true},
		{"object without id", `{"name": "Action"}`, 0, true},
		{"array", `[1]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref Ref
			err := json.Unmarshal([]byte(tt.payload), &ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.payload)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal %s: %v", tt.payload, err)
			}
			if ref.ID != tt.want {
				t.Fatalf("id = %d, want %d", ref.ID, tt.want)
			}
		})
	}
}

func TestRefListMixedForms(t *testing.T) {
	var list RefList
	payload := `[1, "2", {"id": 3, "name": "Someone"}]`
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	ids := list.IDs()
	want := []int64{1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}
