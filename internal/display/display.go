// Package display renders a Store's contents as a column-aligned
// table for the REPL's ":store" command.
package display

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/haricheung/agentic-shell/internal/ast"
)

// ANSI codes, matching the REPL's own palette.
const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

// Row is one token/count pair, exported so callers (such as tests) can
// build a table without going through a live Store.
type Row struct {
	Token ast.Token
	Count uint32
}

// RowsFromSnapshot converts a store snapshot into a sorted slice of
// Rows, ordered by token for stable, diffable output.
func RowsFromSnapshot(snapshot map[ast.Token]uint32) []Row {
	rows := make([]Row, 0, len(snapshot))
	for tok, count := range snapshot {
		rows = append(rows, Row{Token: tok, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Token < rows[j].Token })
	return rows
}

// Table renders rows as a two-column, right-padded table. Column
// widths are computed with runewidth so tokens containing wide
// (double-column terminal) characters still align, even though the
// BachT grammar itself only admits ASCII identifiers — tokens may
// still be redisplayed alongside other wide text in a shared pane.
func Table(rows []Row) string {
	if len(rows) == 0 {
		return ansiDim + "(store is empty)" + ansiReset + "\n"
	}

	tokWidth := runewidth.StringWidth("token")
	countWidth := runewidth.StringWidth("count")
	counts := make([]string, len(rows))
	for i, r := range rows {
		if w := runewidth.StringWidth(string(r.Token)); w > tokWidth {
			tokWidth = w
		}
		counts[i] = strconv.FormatUint(uint64(r.Count), 10)
		if w := runewidth.StringWidth(counts[i]); w > countWidth {
			countWidth = w
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s%s  %s%s\n", ansiBold, ansiCyan,
		runewidth.FillRight("token", tokWidth),
		runewidth.FillLeft("count", countWidth), ansiReset)
	for i, r := range rows {
		fmt.Fprintf(&sb, "%s  %s\n",
			runewidth.FillRight(string(r.Token), tokWidth),
			runewidth.FillLeft(counts[i], countWidth))
	}
	return sb.String()
}

// RenderSnapshot is the common entry point: sort then render.
func RenderSnapshot(snapshot map[ast.Token]uint32) string {
	return Table(RowsFromSnapshot(snapshot))
}
