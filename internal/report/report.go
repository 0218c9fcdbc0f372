package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/highwin/internal/result"
)

// Generate reads a result document and prints one row per matchup.
func Generate(path, format string, w io.Writer) error {
	doc, err := result.Read(path)
	if err != nil {
		return err
	}
	rows := doc.Rows()

	switch format {
	case "markdown":
		return writeMarkdown(rows, w)
	case "json":
		return writeJSON(rows, w)
	case "table", "":
		return writeTable(rows, w)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeTable(rows []result.Row, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENV\tOPP SLOT\tOPPONENT\tWIN RATE\tPOLICY")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\n",
			r.Env, r.OpponentSlot, r.Opponent, r.Winrate*100, r.Policy)
	}
	return tw.Flush()
}

func writeMarkdown(rows []result.Row, w io.Writer) error {
	fmt.Fprintln(w, "| Env | Opp Slot | Opponent | Win Rate | Policy |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, r := range rows {
		fmt.Fprintf(w, "| %s | %s | %s | %.1f%% | `%s` |\n",
			r.Env, r.OpponentSlot, r.Opponent, r.Winrate*100, r.Policy)
	}
	return nil
}

func writeJSON(rows []result.Row, w io.Writer) error {
	if rows == nil {
		rows = []result.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
