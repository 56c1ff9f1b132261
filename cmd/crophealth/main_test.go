package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javierballesterjack/crop-health-engine/internal/acquisition"
	"github.com/javierballesterjack/crop-health-engine/internal/zonal"
)

func TestCommandsAreRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"scan", "sample", "series"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestSampleRequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--no-banner", "--env", "missing.env", "sample"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestPrintSummary(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	report := &acquisition.Report{
		ScenePath: "tiles/30/T/VK/",
		Next:      day.AddDate(0, 0, 5),
		Dates: []acquisition.DateOutcome{{
			Date:   day,
			Status: acquisition.StatusAggregated,
			Fields: []acquisition.FieldOutcome{
				{FieldID: "a", Stored: true, Result: zonal.Result{NDVI: 0.2, Count: 10}},
				{FieldID: "b", Stored: true, Result: zonal.Result{NDVI: 0.8, Count: 30}},
			},
		}},
	}

	var buf bytes.Buffer
	summary := printSummary(&buf, []*acquisition.Report{report})
	assert.Contains(t, summary, "2 rows over 40 pixels")
	assert.Contains(t, summary, "NDVI 0.650")
	assert.Contains(t, buf.String(), "1 aggregated")

	assert.Equal(t, "No field could be aggregated", printSummary(&bytes.Buffer{}, nil))
}
