package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fyrsmithlabs/sparkd/internal/quest"
	"github.com/fyrsmithlabs/sparkd/internal/redemption"
	"github.com/fyrsmithlabs/sparkd/internal/rewards"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	expiredStyle = cellStyle.Foreground(lipgloss.Color("245"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func renderRewards(w io.Writer, version string, defs []rewards.Definition) {
	fmt.Fprintln(w, titleStyle.Render("Rewards")+" "+dimStyle.Render("catalog "+version))
	t := newTable("ID", "NAME", "CATEGORY", "COST", "RARITY")
	for _, d := range defs {
		t.Row(d.ID, d.Name, string(d.Category), strconv.FormatInt(d.Cost, 10), string(d.Rarity))
	}
	fmt.Fprintln(w, t.Render())
}

func renderPoints(w io.Writer, p *redemption.Points) {
	field(w, "Spark points", strconv.FormatInt(p.SparkPoints, 10))
	field(w, "Quests assigned", strconv.FormatInt(p.QuestsAssigned, 10))
	field(w, "Quests completed", strconv.FormatInt(p.QuestsCompleted, 10))
}

func renderReceipt(w io.Writer, r *redemption.Receipt) {
	fmt.Fprintln(w, titleStyle.Render("Redeemed "+r.Redemption.RewardName))
	field(w, "Receipt", r.Redemption.ID)
	field(w, "Cost", strconv.FormatInt(r.Redemption.Cost, 10))
	if r.Redemption.ExpiresAt != nil {
		field(w, "Expires", r.Redemption.ExpiresAt.Local().Format(time.RFC1123))
	}
	field(w, "Remaining", strconv.FormatInt(r.RemainingBalance, 10))
}

func renderRedemptions(w io.Writer, items []redemption.Redemption) {
	if len(items) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No redemptions."))
		return
	}
	t := newTable("REWARD", "COST", "REDEEMED", "STATUS", "EXPIRES")
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case items[row].IsExpired:
			return expiredStyle
		}
		return cellStyle
	})
	for _, r := range items {
		status := string(r.Status)
		if r.IsExpired {
			status = "expired"
		}
		expires := "-"
		if r.ExpiresAt != nil {
			expires = r.ExpiresAt.Local().Format("2006-01-02 15:04")
		}
		t.Row(r.RewardName, strconv.FormatInt(r.Cost, 10), r.RedeemedAt.Local().Format("2006-01-02 15:04"), status, expires)
	}
	fmt.Fprintln(w, t.Render())
}

func renderAssignment(w io.Writer, a *quest.Assignment) {
	fmt.Fprintln(w, titleStyle.Render(a.Quest.Title)+" "+dimStyle.Render(a.Day))
	fmt.Fprintln(w, a.Quest.Description)
	field(w, "Type", string(a.Quest.Type))
	field(w, "Why", a.Rule)
}

func renderHistory(w io.Writer, entries []quest.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No quest history."))
		return
	}
	t := newTable("QUEST", "TYPE", "LAST")
	for _, e := range entries {
		t.Row(e.Title, string(e.Type), e.LastAt.Local().Format("2006-01-02"))
	}
	fmt.Fprintln(w, t.Render())
}
