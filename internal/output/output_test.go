package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vpsdash/vpsdash/internal/core"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("  JSON ")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	_, err = ParseFormat("yaml")
	require.Error(t, err)
}

func TestServersTable(t *testing.T) {
	rendered := ServersTable([]core.Server{
		{ID: "srv-1", RDNS: "web.example.com", Status: "running", IPAddress: "10.0.0.1", Distro: "debian-12"},
		{ID: "srv-2", Node: "node-7", Status: "stopped", IPAddress: "10.0.0.2", Distro: "ubuntu-24"},
	})

	require.Contains(t, rendered, "web.example.com")
	// servers without rdns fall back to the node name
	require.Contains(t, rendered, "node-7")
	require.Contains(t, rendered, "running")
	require.Contains(t, rendered, "2 servers")
}

func TestAccountsTableMarksActive(t *testing.T) {
	rendered := AccountsTable([]core.Account{
		{ID: "a-1", Name: "primary", Status: core.AccountActive, LastChecked: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{ID: "a-2", Name: "backup", Status: core.AccountPending},
	}, "a-1")

	require.Contains(t, rendered, "primary")
	require.Contains(t, rendered, "*")
	require.Contains(t, rendered, "2025-06-01 12:00")
}

func TestBatchTable(t *testing.T) {
	rendered := BatchTable(&core.BatchResult{
		Action:    core.PowerStop,
		Succeeded: []string{"srv-1"},
		Failed:    1,
		Errors:    map[string]string{"srv-2": "unreachable"},
	})

	require.Contains(t, rendered, "srv-1")
	require.Contains(t, rendered, "unreachable")
	require.Contains(t, rendered, "STOP: 1 ok")
	require.Contains(t, rendered, "1 failed")

	require.Empty(t, BatchTable(nil))
}

func TestRenderJSON(t *testing.T) {
	rendered, err := RenderJSON([]core.Region{{ID: 1, Region: "eu-west", Location: "Amsterdam"}})
	require.NoError(t, err)
	require.Contains(t, rendered, `"eu-west"`)
}
