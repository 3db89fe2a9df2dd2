package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"azdo-monitor/src/paging"
	"azdo-monitor/src/provider"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8AB4F8"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA0A6"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EA4335"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBC04"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#34A853"))
)

// styleResult colours a result or state value.
func styleResult(s string) string {
	switch s {
	case "succeeded":
		return okStyle.Render(s)
	case "failed", "abandoned":
		return errorStyle.Render(s)
	case "succeededWithIssues", "partiallySucceeded", "canceled":
		return warnStyle.Render(s)
	case "":
		return faintStyle.Render("-")
	}
	return s
}

// printTable writes rows under headers without outer borders.
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, faintStyle.Render("(none)"))
		return
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderHeader(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				return s.Inherit(headerStyle)
			}
			return s
		})
	fmt.Fprintln(w, t.Render())
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadPages reads a list through a paging loader: the first page always, then
// further pages while the list continues and either all is set or fewer than
// limit items are loaded. A page that adds nothing or hands back the token it
// was requested with ends the list.
func loadPages[T any](ctx context.Context, fetch paging.FetchFunc[T], limit int, all bool) ([]T, paging.Cursor, error) {
	loader := paging.NewLoader[T]()
	if err := loader.LoadNext(ctx, fetch, true); err != nil {
		return nil, paging.Cursor{}, err
	}
	for loader.ShouldLoadMore() && (all || loader.Len() < limit) {
		n, token := loader.Len(), loader.Cursor().Token
		if err := loader.LoadNext(ctx, fetch, false); err != nil {
			return nil, paging.Cursor{}, err
		}
		if loader.Len() == n || loader.Cursor().Token == token {
			return loader.Items(), paging.Cursor{Exhausted: true}, nil
		}
	}
	return loader.Items(), loader.Cursor(), nil
}

// moreHint tells the user a list was cut short.
func moreHint(w io.Writer, c paging.Cursor) {
	if !c.Exhausted {
		fmt.Fprintln(w, faintStyle.Render("More results available: use --all or a larger --limit"))
	}
}

// parseBuildRef reads a build from either a results URL or a project and a
// build id at the front of args, returning the remaining arguments.
func parseBuildRef(args []string, org string) (project string, buildID int, rest []string, err error) {
	if len(args) == 0 {
		return "", 0, nil, fmt.Errorf("a build URL or <project> <build-id> is required")
	}

	if strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://") {
		ref, err := provider.ParseURL(args[0])
		if err != nil {
			return "", 0, nil, err
		}
		if org != "" && !strings.EqualFold(ref.Organization, org) {
			return "", 0, nil, fmt.Errorf("build belongs to organization %q but AZDO_ORG is %q", ref.Organization, org)
		}
		return ref.Project, ref.BuildID, args[1:], nil
	}

	if len(args) < 2 {
		return "", 0, nil, fmt.Errorf("a build URL or <project> <build-id> is required")
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 {
		return "", 0, nil, fmt.Errorf("invalid build id %q", args[1])
	}
	return args[0], id, args[2:], nil
}

// parseID parses a positive numeric identifier argument.
func parseID(name, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return id, nil
}
