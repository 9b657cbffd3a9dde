// Package printer renders CLI output: status lines, session tables and error
// boxes.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hay-kot/criterio"
	"github.com/hay-kot/lobby/internal/core/session"
)

// Tokyo Night palette
var (
	colorRed    = lipgloss.Color("#d75f6b")
	colorGreen  = lipgloss.Color("#9ece6a")
	colorYellow = lipgloss.Color("#e0af68")
	colorGray   = lipgloss.Color("#565f89")
	colorBlue   = lipgloss.Color("#7aa2f7")
)

// Symbols
const (
	Check = "✔"
	Cross = "✘"
	Dot   = "•"
	Lock  = "🔒"
)

type ctxKey struct{}

// Printer handles formatted output with colors and styles
type Printer struct {
	writer   io.Writer
	renderer *lipgloss.Renderer

	red, green, yellow, gray, bold lipgloss.Style
}

// New creates a new Printer that writes to the given writer. Colors are
// dropped when w is not a terminal.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		writer:   w,
		renderer: r,
		red:      r.NewStyle().Foreground(colorRed),
		green:    r.NewStyle().Foreground(colorGreen),
		yellow:   r.NewStyle().Foreground(colorYellow),
		gray:     r.NewStyle().Foreground(colorGray),
		bold:     r.NewStyle().Bold(true),
	}
}

// NewContext returns a context with the printer attached
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx retrieves the printer from context, or creates a default one
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stderr)
}

// FatalError prints a formatted error box and does NOT exit
// Caller should handle exit code
func (p *Printer) FatalError(err error) {
	if err == nil {
		return
	}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		p.printValidationErrors(err, fieldErrs)
		return
	}

	lines := []string{
		p.red.Render("╭ Error"),
		p.red.Render("│") + " " + p.gray.Render(err.Error()),
		p.red.Render("╵"),
	}

	p.write(strings.Join(lines, "\n"))
}

// printValidationErrors formats criterio.FieldErrors as a box with one line
// per field.
func (p *Printer) printValidationErrors(wrappedErr error, fieldErrs criterio.FieldErrors) {
	// Keep the wrapping context, e.g. "load config: invalid config".
	errStr := wrappedErr.Error()
	errContext := ""
	if idx := strings.Index(errStr, fieldErrs.Error()); idx > 0 {
		errContext = strings.TrimSuffix(errStr[:idx], ": ")
	}

	bar := p.red.Render("│")
	p.write(p.red.Render("╭ Validation Error"))

	if errContext != "" {
		p.write(bar + " " + p.gray.Render(errContext))
		p.write(bar)
	}

	for _, fe := range fieldErrs {
		line := bar + " " + p.red.Render(Cross) + " "
		if fe.Field != "" {
			line += p.gray.Render(fe.Field + ": ")
		}
		line += fe.Err.Error()
		p.write(line)
	}

	p.write(p.red.Render("╵"))
}

// Errorf prints an error message in red
func (p *Printer) Errorf(format string, args ...any) {
	p.write(p.red.Render(Cross + " " + fmt.Sprintf(format, args...)))
}

// Successf prints a success message in green
func (p *Printer) Successf(format string, args ...any) {
	p.write(p.green.Render(Check + " " + fmt.Sprintf(format, args...)))
}

// Success prints a success message with details on a separate line
func (p *Printer) Success(message string, details string) {
	p.write(p.green.Render(Check + " " + message))
	if details != "" {
		p.write("  " + p.gray.Render(details))
	}
}

// Infof prints an info message in gray
func (p *Printer) Infof(format string, args ...any) {
	p.write(p.gray.Render(Dot + " " + fmt.Sprintf(format, args...)))
}

// Warnf prints a warning message in yellow
func (p *Printer) Warnf(format string, args ...any) {
	p.write(p.yellow.Render(Dot + " " + fmt.Sprintf(format, args...)))
}

// Printf prints a plain message without colors
func (p *Printer) Printf(format string, args ...any) {
	p.write(fmt.Sprintf(format, args...))
}

// Section prints a bold underlined heading.
func (p *Printer) Section(title string) {
	p.write(p.bold.Underline(true).Render(title))
}

// CheckItem prints a passing check line.
func (p *Printer) CheckItem(label, detail string) {
	p.printItem(p.green, Check, label, detail)
}

// WarnItem prints a warning check line.
func (p *Printer) WarnItem(label, detail string) {
	p.printItem(p.yellow, Dot, label, detail)
}

// FailItem prints a failing check line.
func (p *Printer) FailItem(label, detail string) {
	p.printItem(p.red, Cross, label, detail)
}

func (p *Printer) printItem(style lipgloss.Style, symbol, label, detail string) {
	line := "  " + style.Render(symbol) + " " + label
	if detail != "" {
		line += " " + p.gray.Render(detail)
	}
	p.write(line)
}

// Sessions prints search results as a table in backend order.
func (p *Printer) Sessions(records []session.Record) {
	if len(records) == 0 {
		p.Infof("no sessions found")
		return
	}

	header := p.renderer.NewStyle().Bold(true).Foreground(colorBlue).Padding(0, 1)
	cell := p.renderer.NewStyle().Padding(0, 1)
	dim := cell.Foreground(colorGray)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.gray).
		Headers("ID", "NAME", "MAP", "MODE", "PLAYERS", "PING").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case records[row].IsFull():
				return dim
			default:
				return cell
			}
		})

	for _, r := range records {
		name := r.DisplayName
		if r.PasswordProtected {
			name += " " + Lock
		}
		t.Row(r.ID, name, r.MapName, r.GameMode, r.Slots(), fmt.Sprintf("%dms", r.PingMs))
	}

	p.write(t.Render())
}

func (p *Printer) write(line string) {
	_, _ = io.WriteString(p.writer, line+"\n")
}
