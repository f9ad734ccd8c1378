// Package report renders query results for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/woozymasta/a2squery/internal/game"
)

// Write renders reports to w as "json" or "table".
func Write(w io.Writer, format string, reports []*game.Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	for i, r := range reports {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		writeTables(w, r)
	}

	return nil
}

func writeTables(w io.Writer, r *game.Report) {
	title := r.Address
	if r.Name != "" {
		title = r.Name + " (" + r.Address + ")"
	}
	if r.Country != "" {
		title += " [" + r.Country + "]"
	}
	_, _ = fmt.Fprintf(w, "%s  %s\n", title, r.Latency.Round(time.Millisecond))

	if r.Info != nil {
		tw := newTable(w, []string{"Field", "Value"})
		info := r.Info
		tw.AppendBulk([][]string{
			{"Name", info.Name},
			{"Map", info.Map},
			{"Folder", info.Folder},
			{"Game", info.Game},
			{"Game ID", strconv.Itoa(int(info.GameID))},
			{"Protocol", strconv.Itoa(int(info.Protocol))},
			{"Players", fmt.Sprintf("%d/%d (%d bots)", info.Players, info.MaxPlayers, info.Bots)},
			{"Server Type", info.ServerType.String()},
			{"Environment", info.Environment.String()},
			{"Password", strconv.FormatBool(info.Password)},
			{"VAC", strconv.FormatBool(info.VAC)},
		})
		if ext := info.Extended; ext != nil {
			tw.Append([]string{"Version", ext.Version})
			if ext.Port != 0 {
				tw.Append([]string{"Game Port", strconv.Itoa(int(ext.Port))})
			}
			if ext.Keywords != "" {
				tw.Append([]string{"Keywords", ext.Keywords})
			}
		}
		tw.Render()
	}

	if r.Players != nil {
		tw := newTable(w, []string{"#", "Player", "Score", "Time"})
		for i, p := range r.Players {
			tw.Append([]string{
				strconv.Itoa(i + 1),
				p.Name,
				strconv.Itoa(int(p.Score)),
				time.Duration(float64(p.Duration) * float64(time.Second)).Round(time.Second).String(),
			})
		}
		tw.Render()
	}

	if r.Rules != nil {
		tw := newTable(w, []string{"Rule", "Value"})
		for _, rule := range r.Rules {
			tw.Append([]string{rule.Name, rule.Value})
		}
		tw.Render()
	}

	if len(r.Errors) > 0 {
		kinds := make([]string, 0, len(r.Errors))
		for k := range r.Errors {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		tw := newTable(w, []string{"Query", "Error"})
		for _, k := range kinds {
			tw.Append([]string{k, r.Errors[k]})
		}
		tw.Render()
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	return tw
}
