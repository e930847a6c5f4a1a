package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vpsdash/vpsdash/internal/core"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// ServersTable renders the fleet as an ASCII table.
func ServersTable(servers []core.Server) string {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Status", "IP", "Distro", "Expires"})

	for _, server := range servers {
		name := server.RDNS
		if name == "" {
			name = server.Node
		}
		t.AppendRow(table.Row{
			server.ID,
			name,
			statusLabel(server.Status),
			server.IPAddress,
			server.Distro,
			server.ExpiryAt,
		})
	}

	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d servers", len(servers)), "", "", ""})
	return t.Render()
}

// PlansTable renders purchasable plans.
func PlansTable(plans []core.Plan) string {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Title", "Cores", "Memory", "Storage", "Price"})

	for _, plan := range plans {
		t.AppendRow(table.Row{
			plan.ID,
			plan.Title,
			plan.Cores,
			fmt.Sprintf("%d MB", plan.Memory),
			fmt.Sprintf("%d GB", plan.Storage),
			fmt.Sprintf("%.2f", plan.Price),
		})
	}
	return t.Render()
}

// RegionsTable renders datacenter locations.
func RegionsTable(regions []core.Region) string {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Region", "Location"})
	for _, region := range regions {
		t.AppendRow(table.Row{region.ID, region.Region, region.Location})
	}
	return t.Render()
}

// DistrosTable renders installable OS images.
func DistrosTable(distros []core.Distribution) string {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Description"})
	for _, distro := range distros {
		t.AppendRow(table.Row{distro.ID, distro.Description})
	}
	return t.Render()
}

// StockTable renders plan availability per region.
func StockTable(stock []core.StockInfo) string {
	t := newTable()
	t.AppendHeader(table.Row{"Region", "Plan", "Available", "Stock"})

	for _, entry := range stock {
		available := "no"
		if entry.Stock.Available {
			available = "yes"
		}
		t.AppendRow(table.Row{
			entry.Region.Region,
			entry.Stock.Plan.Title,
			available,
			entry.Stock.Stock,
		})
	}
	return t.Render()
}

// AccountsTable renders stored accounts, marking the active one.
func AccountsTable(accounts []core.Account, activeID string) string {
	t := newTable()
	t.AppendHeader(table.Row{"", "Name", "Status", "Last Checked", "Error"})

	for _, account := range accounts {
		marker := ""
		if account.ID == activeID {
			marker = "*"
		}
		lastChecked := ""
		if !account.LastChecked.IsZero() {
			lastChecked = account.LastChecked.Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{marker, account.Name, string(account.Status), lastChecked, account.LastError})
	}
	return t.Render()
}

// GroupsTable renders server groups with member counts.
func GroupsTable(groups []core.Group) string {
	t := newTable()
	t.AppendHeader(table.Row{"Name", "Description", "Servers"})
	for _, group := range groups {
		t.AppendRow(table.Row{group.Name, group.Description, len(group.ServerIDs)})
	}
	return t.Render()
}

// AuditTable renders audit entries, newest first.
func AuditTable(records []core.AuditRecord) string {
	t := newTable()
	t.AppendHeader(table.Row{"Time", "Action", "Account", "Status", "Details"})
	for _, record := range records {
		t.AppendRow(table.Row{
			record.Timestamp.Format("2006-01-02 15:04:05"),
			record.Action,
			record.AccountName,
			string(record.Status),
			record.Details,
		})
	}
	return t.Render()
}

// BatchTable renders a settled batch result.
func BatchTable(result *core.BatchResult) string {
	if result == nil {
		return ""
	}

	t := newTable()
	t.AppendHeader(table.Row{"Server", "Outcome"})
	for _, serverID := range result.Succeeded {
		t.AppendRow(table.Row{serverID, "ok"})
	}
	for serverID, message := range result.Errors {
		t.AppendRow(table.Row{serverID, message})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%s: %d ok", strings.ToUpper(string(result.Action)), len(result.Succeeded)),
		fmt.Sprintf("%d failed", result.Failed),
	})
	return t.Render()
}

func statusLabel(status string) string {
	switch status {
	case "running":
		return "🟢 running"
	case "stopped":
		return "⚫ stopped"
	case "suspended":
		return "🟡 suspended"
	default:
		return status
	}
}
