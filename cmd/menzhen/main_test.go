package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menzhen/menzhen/internal/config"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
	"github.com/menzhen/menzhen/pkg/swap"
)

const rosterPath = "../../pkg/scheduler/testdata/roster.json"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse()
	require.NoError(t, err)
	cfg.Scheduler.PopulationSize = 6
	cfg.Scheduler.MinPopulation = 6
	cfg.Scheduler.MaxPopulation = 6
	cfg.Scheduler.Workers = 2
	return cfg
}

func writePreview(t *testing.T, pv *solver.Preview) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preview.json")
	data, err := json.Marshal(pv)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func preview(t *testing.T) *solver.Preview {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(t), []string{"preview", "-roster", rosterPath}, &out))
	pv, err := solver.DecodePreview(&out)
	require.NoError(t, err)
	return pv
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), nil, &out)
	assert.Equal(t, 2, apperrors.ExitCode(err))
	assert.Contains(t, out.String(), "menzhen schedule")

	err = run(context.Background(), testConfig(t), []string{"bogus"}, &out)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	require.NoError(t, run(context.Background(), testConfig(t), []string{"version"}, &out))

	out.Reset()
	require.NoError(t, run(context.Background(), testConfig(t), []string{"rules"}, &out))
	assert.Contains(t, out.String(), "no_double_booking")
}

func TestRun_Preview(t *testing.T) {
	pv := preview(t)
	assert.Empty(t, pv.Unplaced)
	assert.Len(t, pv.ClinicAssignments, 5)
	assert.Contains(t, pv.R4Fixed, "R4_A")
}

func TestRun_MissingRoster(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), []string{"preview"}, &out)
	assert.Equal(t, 2, apperrors.ExitCode(err))

	err = run(context.Background(), testConfig(t), []string{"preview", "-roster", "missing.json"}, &out)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))

	err = run(context.Background(), testConfig(t), []string{"preview", "-roster", rosterPath, "-catalog", "missing.yaml"}, &out)
	assert.Equal(t, 3, apperrors.ExitCode(err))
}

func TestRun_Schedule(t *testing.T) {
	var out bytes.Buffer
	args := []string{"schedule", "-roster", rosterPath, "-generations", "2", "-seed", "3", "-deadline", "1m"}
	require.NoError(t, run(context.Background(), testConfig(t), args, &out))

	var res scheduler.Output
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Generations)
	assert.Equal(t, "R3_Z", res.Schedule["W1"][model.Tuesday][model.Morning]["4201"])
	assert.NotNil(t, res.Violations.Hard)
}

func TestRun_ScheduleEditedPreview(t *testing.T) {
	pv := preview(t)
	path := writePreview(t, pv)

	var out bytes.Buffer
	args := []string{"edit", "-roster", rosterPath, "-preview", path, "-kind", "swap", "-person", "R1_C", "-other", "R1_E", "-apply"}
	require.NoError(t, run(context.Background(), testConfig(t), args, &out))
	edited, err := solver.DecodePreview(&out)
	require.NoError(t, err)

	// 内科病房组换到周五，周五禁排
	args = []string{"schedule", "-roster", rosterPath, "-preview", writePreview(t, edited), "-generations", "1"}
	err = run(context.Background(), testConfig(t), args, &out)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdit))
}

func TestRun_EditAndSuggest(t *testing.T) {
	path := writePreview(t, preview(t))

	var out bytes.Buffer
	args := []string{"edit", "-roster", rosterPath, "-preview", path, "-person", "R1_C", "-unassign", "-apply"}
	require.NoError(t, run(context.Background(), testConfig(t), args, &out))
	unassigned, err := solver.DecodePreview(&out)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1_C"}, unassigned.Unplaced)

	out.Reset()
	args = []string{"suggest", "-roster", rosterPath, "-preview", writePreview(t, unassigned)}
	require.NoError(t, run(context.Background(), testConfig(t), args, &out))
	var recs []swap.Recommendation
	require.NoError(t, json.Unmarshal(out.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "R1_C", recs[0].Edit.PersonID)

	err = run(context.Background(), testConfig(t), []string{"edit", "-roster", rosterPath, "-person", "R1_C", "-day", "Someday", "-preview", path}, &out)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
}
