package models

import (
	"encoding/json"
	"sort"
	"testing"
)

func TestPriorityOrdinal(t *testing.T) {
	list := []Priority{PriorityHigh, PriorityLow, PriorityMedium}
	sort.Slice(list, func(i, j int) bool { return list[i].Ordinal() < list[j].Ordinal() })

	want := []Priority{PriorityLow, PriorityMedium, PriorityHigh}
	for i := range want {
		if list[i] != want[i] {
			t.Fatalf("ordinal order = %v, want %v", list, want)
		}
	}
	if Priority("URGENT").Ordinal() != -1 {
		t.Errorf("unknown priority should have ordinal -1")
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"LOW", PriorityLow, false},
		{" medium ", PriorityMedium, false},
		{"High", PriorityHigh, false},
		{"", "", true},
		{"urgent", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTaskSort(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		direction string
		want      TaskSort
		wantErr   bool
	}{
		{"defaults", "", "", TaskSort{SortByCreatedAt, SortDesc}, false},
		{"priority asc", "priority", "asc", TaskSort{SortByPriority, SortAsc}, false},
		{"direction case", "dueDate", "DESC", TaskSort{SortByDueDate, SortDesc}, false},
		{"only direction", "", "asc", TaskSort{SortByCreatedAt, SortAsc}, false},
		{"bad field", "owner_id", "asc", TaskSort{}, true},
		{"bad direction", "title", "sideways", TaskSort{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskSort(tt.field, tt.direction)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNullableString_UnmarshalJSON(t *testing.T) {
	var body struct {
		DueDate    NullableString `json:"dueDate"`
		CategoryID NullableString `json:"categoryId"`
		Title      NullableString `json:"title"`
	}
	if err := json.Unmarshal([]byte(`{"dueDate": null, "title": "x"}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.DueDate.Present || body.DueDate.Value != nil {
		t.Errorf("explicit null: got %+v", body.DueDate)
	}
	if body.CategoryID.Present {
		t.Errorf("omitted field should not be present")
	}
	if !body.Title.Present || body.Title.Value == nil || *body.Title.Value != "x" {
		t.Errorf("value: got %+v", body.Title)
	}
}
