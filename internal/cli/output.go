package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/liamcoop/pdc/pdc"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// palette colors terminal output. Every color is disabled when writing elsewhere.
type palette struct {
	yes, no, unknown, bold, faint *color.Color

	publicDomain, protected, indeterminate *color.Color
}

func newPalette(w io.Writer, disabled bool) *palette {
	p := &palette{
		yes:     color.New(color.FgGreen),
		no:      color.New(color.FgRed),
		unknown: color.New(color.FgYellow),
		bold:    color.New(color.Bold),
		faint:   color.New(color.FgHiBlack),

		publicDomain:  color.New(color.FgGreen, color.Bold),
		protected:     color.New(color.FgRed, color.Bold),
		indeterminate: color.New(color.FgYellow, color.Bold),
	}

	enabled := !disabled && isTerminal(w)
	for _, c := range []*color.Color{
		p.yes, p.no, p.unknown, p.bold, p.faint,
		p.publicDomain, p.protected, p.indeterminate,
	} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// isTerminal reports whether w is a TTY. NO_COLOR is honoured through color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return !color.NoColor && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

func (p *palette) answer(a pdc.Answer) string {
	switch a {
	case pdc.Yes, pdc.AssumedYes:
		return p.yes.Sprint(a.String())
	case pdc.No, pdc.AssumedNo:
		return p.no.Sprint(a.String())
	default:
		return p.unknown.Sprint(a.String())
	}
}

func (p *palette) verdict(v pdc.Verdict) string {
	switch v {
	case pdc.VerdictPublicDomain:
		return p.publicDomain.Sprint(v.String())
	case pdc.VerdictProtected:
		return p.protected.Sprint(v.String())
	default:
		return p.indeterminate.Sprint(v.String())
	}
}

func writeResult(w io.Writer, result *pdc.Result, format string, p *palette) error {
	if format == formatJSON {
		return writeJSON(w, result)
	}

	if result.Metadata != nil {
		fmt.Fprintf(w, "%s %s\n", p.bold.Sprint("Item:"), result.Metadata.ItemID())
	}
	for i, aq := range result.Trace {
		q := aq.Question()
		fmt.Fprintf(w, "%3d. %s %s\n", i+1, q.Text(), p.faint.Sprintf("(%s)", q.ID()))
		fmt.Fprintf(w, "     %s\n", p.answer(aq.Answer()))
		if assumption, ok := aq.Assumption(); ok {
			fmt.Fprintf(w, "     %s %s\n", p.faint.Sprint("assuming"), assumption)
		}
	}
	fmt.Fprintf(w, "%s %s\n", p.bold.Sprint("Verdict:"), p.verdict(result.Verdict))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (use %s or %s)", format, formatText, formatJSON)
}
