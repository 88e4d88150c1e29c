package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluate(t *testing.T) {
	out, err := run(t, "evaluate", "-f", "testdata/sfo_nrt.json")
	require.NoError(t, err)

	assert.Contains(t, out, "SFO -> NRT  2026-11-02  business  1 pax")
	assert.Contains(t, out, "70,000 points on ana")
	assert.Contains(t, out, "2.51 cents/point  Excellent")
	assert.Contains(t, out, "Good deal: yes")
	assert.Contains(t, out, "1,760.00")
	assert.Contains(t, out, "1. Search award space on ANA Mileage Club")
	assert.Contains(t, out, "Phone: 1-800-235-9262 (wait 15-30 minutes)")
}

func TestEvaluate_StricterCutoff(t *testing.T) {
	out, err := run(t, "evaluate", "-f", "testdata/sfo_nrt.json", "--cutoff", "exceptional")
	require.NoError(t, err)
	assert.Contains(t, out, "Good deal: no")

	_, err = run(t, "evaluate", "-f", "testdata/sfo_nrt.json", "--cutoff", "stellar")
	assert.Error(t, err)
}

func TestOptimize_FlexDateQuote(t *testing.T) {
	out, err := run(t, "optimize", "-f", "testdata/sfo_nrt.json", "--flex-days", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-11-03")
	assert.Contains(t, out, "2.85 cents/point")
	assert.Contains(t, out, "Baseline: 2.51 cents/point")
}

func TestOptimize_JSON(t *testing.T) {
	out, err := run(t, "optimize", "-f", "testdata/sfo_nrt.json", "--flex-days", "1", "--bonus", "25", "--json")
	require.NoError(t, err)

	var got usecase.OptimizeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 48000, got.Calculation.Award.PointsCost, "60,000 points with a 25% bonus")
	assert.Equal(t, time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC), got.Itinerary.DepartDate)
	assert.Equal(t, entity.RatingExceptional, got.Calculation.Rating)
	require.NotNil(t, got.TransferFrom)
	assert.Equal(t, "amex_mr", *got.TransferFrom)
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, "evaluate")
	assert.Error(t, err, "the deal file is required")

	_, err = run(t, "evaluate", "-f", "testdata/missing.json")
	assert.Error(t, err)

	_, err = run(t, "optimize", "-f", "testdata/sfo_nrt.json", "--alt-cabin", "coach")
	assert.Error(t, err)

	_, err = run(t, "optimize", "-f", "testdata/sfo_nrt.json", "--flex-days", "30")
	assert.Error(t, err)
}
