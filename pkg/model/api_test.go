package model

import "testing"

func TestListOptions_Clamp(t *testing.T) {
	tests := []struct {
		name       string
		input      ListOptions
		wantLimit  int
		wantOffset int
	}{
		{"defaults", ListOptions{Limit: 0, Offset: 0}, 20, 0},
		{"negative limit", ListOptions{Limit: -5, Offset: 0}, 20, 0},
		{"over max", ListOptions{Limit: 500, Offset: 0}, 200, 0},
		{"negative offset", ListOptions{Limit: 10, Offset: -3}, 10, 0},
		{"valid", ListOptions{Limit: 50, Offset: 10}, 50, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Clamp()
			if tt.input.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.input.Limit, tt.wantLimit)
			}
			if tt.input.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", tt.input.Offset, tt.wantOffset)
			}
		})
	}
}

func TestTickResult_Merge(t *testing.T) {
	a := TickResult{Selected: 3, Claimed: 2, Succeeded: 1, Failed: 1, Skipped: 1}
	b := TickResult{Selected: 2, Claimed: 2, Succeeded: 2, Reclaimed: 1, PersistErrors: 1}

	a.Merge(b)

	want := TickResult{Selected: 5, Claimed: 4, Succeeded: 3, Failed: 1, Skipped: 1, Reclaimed: 1, PersistErrors: 1}
	if a != want {
		t.Errorf("Merge = %+v, want %+v", a, want)
	}
}
