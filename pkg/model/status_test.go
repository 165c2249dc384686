package model

import "testing"

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusNew, false},
		{StatusProcessing, false},
		{StatusError, false},
		{StatusSuccess, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatus_IsClaimable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusNew, true},
		{StatusError, true},
		{StatusProcessing, false},
		{StatusSuccess, false},
	}
	for _, tt := range tests {
		if got := tt.status.IsClaimable(); got != tt.want {
			t.Errorf("%s.IsClaimable() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusNew, StatusProcessing, true},
		{StatusError, StatusProcessing, true},
		{StatusProcessing, StatusSuccess, true},
		{StatusProcessing, StatusError, true},
		{StatusNew, StatusSuccess, false},
		{StatusNew, StatusError, false},
		{StatusError, StatusSuccess, false},
		{StatusSuccess, StatusProcessing, false},
		{StatusSuccess, StatusError, false},
		{StatusProcessing, StatusNew, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
