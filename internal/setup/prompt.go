// Package setup implements the interactive terminal prompt used to pick a
// calendar and a reminder list.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tazhate/calbridge/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	indexStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

// Prompter reads numbered choices from in and writes the menu to out.
// out is normally stderr because stdout may carry protocol traffic.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Choose lists options and returns the 1-based choice. Anything that is not
// a number, including an empty line or end of input, returns 0 (skip).
func (p *Prompter) Choose(ctx context.Context, cat domain.Category, options []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", headerStyle.Render("Select your "+cat.Label()))
	for i, name := range options {
		fmt.Fprintf(&b, "  %s %s\n", indexStyle.Render(strconv.Itoa(i+1)+"."), name)
	}
	fmt.Fprintf(&b, "  %s %s\n", indexStyle.Render("0."), hintStyle.Render("Skip"))
	fmt.Fprintf(&b, "Choice [0-%d]: ", len(options))
	if _, err := io.WriteString(p.out, b.String()); err != nil {
		return 0, fmt.Errorf("write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read choice: %w", err)
	}

	choice, convErr := strconv.Atoi(strings.TrimSpace(line))
	if convErr != nil || choice < 0 || choice > len(options) {
		fmt.Fprintln(p.out, hintStyle.Render("Skipped."))
		return 0, nil
	}
	return choice, nil
}
