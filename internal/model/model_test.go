package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"SimInfo", &SimInfo{}, "sim_infos"},
		{"Tunnel", &Tunnel{}, "tunnels"},
		{"Run", &Run{}, "runs"},
		{"Vehicle", &Vehicle{}, "vehicles"},
		{"VehicleState", &VehicleState{}, "vehicle_states"},
		{"Alert", &Alert{}, "alerts"},
		{"EnvironmentSample", &EnvironmentSample{}, "environment_samples"},
		{"RunPerformance", &RunPerformance{}, "run_performances"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_CoversAllTables(t *testing.T) {
	assert.Len(t, DatabaseModels, 8)
	for _, m := range DatabaseModels {
		_, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "model %T missing TableName", m)
	}
}
