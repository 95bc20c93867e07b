package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"portval/internal/config"
	"portval/pkg/portval"
)

const testWeights = `fecha,activos,portafolio 1
15-02-2022,EEUU,60%
15-02-2022,Europa,40%
`

const testPrices = `date,EEUU,Europa
15-02-2022,100,50
16-02-2022,101,51
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportCommand(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("PORTVAL_CONFIG", filepath.Join(tmp, "missing.toml"))
	defer config.SetRuntimeDataDir("")

	weights := writeFile(t, tmp, "weights.csv", testWeights)
	prices := writeFile(t, tmp, "prices.csv", testPrices)
	dbPath := filepath.Join(tmp, "portval.db")

	out, err := runCmd(t, weights, prices, "--initial-date", "15-02-2022", "--db", dbPath, "--data-dir", tmp)
	require.NoError(t, err)

	var result struct {
		RunID          string `json:"run_id"`
		Portfolios     int    `json:"portfolios"`
		PricesInserted int    `json:"prices_inserted"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotEmpty(t, result.RunID)
	require.Equal(t, 1, result.Portfolios)
	require.Equal(t, 4, result.PricesInserted)

	core, err := portval.Open(dbPath)
	require.NoError(t, err)
	defer core.Close()
	p, err := core.GetPortfolioByName(context.Background(), "portafolio 1")
	require.NoError(t, err)
	require.Equal(t, "1000000000", p.InitialValue.String())
	require.Equal(t, "2022-02-15", p.InitialDate.String())
}

func TestImportCommandRejectsBadFlags(t *testing.T) {
	tmp := t.TempDir()
	weights := writeFile(t, tmp, "weights.csv", testWeights)
	prices := writeFile(t, tmp, "prices.csv", testPrices)

	tests := []struct {
		name string
		args []string
	}{
		{"missing initial date", []string{weights, prices}},
		{"iso initial date", []string{weights, prices, "--initial-date", "2022-02-15"}},
		{"empty v0", []string{weights, prices, "--initial-date", "15-02-2022", "--v0", " "}},
		{"one file", []string{weights, "--initial-date", "15-02-2022"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestParseOptions(t *testing.T) {
	_, err := parseOptions(importFlags{initialDate: "15-02-2022", v0: "2.000.000"})
	require.Error(t, err)

	opts, err := parseOptions(importFlags{initialDate: "15-02-2022", v0: "500000"})
	require.NoError(t, err)
	require.Equal(t, "2022-02-15", opts.InitialDate.String())
	require.Equal(t, "500000", opts.InitialValue.String())
}
