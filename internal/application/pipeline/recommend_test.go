package pipeline

import (
	"reflect"
	"testing"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
)

func TestComposeImmediateActions(t *testing.T) {
	tests := []struct {
		name     string
		stopWork bool
		actions  []string
		want     []string
	}{
		{
			name:     "directives prepended on stop work",
			stopWork: true,
			actions:  []string{"Install guardrails"},
			want: []string{
				"STOP ALL WORK IMMEDIATELY",
				"Secure the area and prevent worker access",
				"Notify the safety supervisor",
				"Do not resume work until all hazards are mitigated",
				"Install guardrails",
			},
		},
		{
			name:     "duplicate directive from model collapsed",
			stopWork: true,
			actions:  []string{"STOP ALL WORK IMMEDIATELY", "Install guardrails"},
			want: []string{
				"STOP ALL WORK IMMEDIATELY",
				"Secure the area and prevent worker access",
				"Notify the safety supervisor",
				"Do not resume work until all hazards are mitigated",
				"Install guardrails",
			},
		},
		{
			name:     "no stop work keeps model actions only",
			stopWork: false,
			actions:  []string{"Install guardrails", "Install guardrails", ""},
			want:     []string{"Install guardrails"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComposeImmediateActions(tt.stopWork, tt.actions)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposeRecommendations(t *testing.T) {
	matches := []Match{
		{Record: &assessment.Record{Recommendations: []string{"Use a spotter", "Wear fall protection"}}},
		{Record: &assessment.Record{Recommendations: []string{"Wear fall protection", "Cordon off the area"}}},
	}
	got := ComposeRecommendations([]string{"Wear fall protection", "Inspect anchor points"}, matches)
	want := []string{
		"Wear fall protection",
		"Inspect anchor points",
		"Use a spotter",
		"Cordon off the area",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
