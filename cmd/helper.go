// nolint:errcheck
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Hanaasagi/tlmode/internal/completion"
	"github.com/Hanaasagi/tlmode/internal/tui"
)

var (
	titleStyle   = color.New(color.Bold, color.FgHiWhite)
	commandStyle = color.New(color.FgHiGreen)
	shortStyle   = color.New(color.FgHiCyan)
	flagStyle    = color.New(color.Bold, color.FgHiCyan)
	tipStyle     = color.New(color.FgHiYellow)
)

// HelpTemplate prints the long description and usage, then the project link.
var HelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}` + titleStyle.Sprintf("GitHub:") + color.New(color.FgYellow).Sprintln(
	"		https://github.com/Hanaasagi/tlmode",
)

// Command groups shown in the root usage.
const (
	GroupText  = "text"
	GroupStore = "store"
)

// Groups returns the groups for the root command.
func Groups() []*cobra.Group {
	return []*cobra.Group{
		{ID: GroupText, Title: "Text Commands:"},
		{ID: GroupStore, Title: "Stored Data Commands:"},
	}
}

// flagLine splits a pflag usage line into indent, short flag, long flag and
// the rest.
var flagLine = regexp.MustCompile(`^(\s+)(?:(-\w), )?(--[\w-]+)(.*)$`)

func colorFlags(raw string) string {
	lines := strings.Split(strings.TrimRightFunc(raw, unicode.IsSpace), "\n")
	for i, line := range lines {
		m := flagLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent, short, long, rest := m[1], m[2], m[3], m[4]
		if short != "" {
			lines[i] = indent + flagStyle.Sprint(short) + ", " + long + rest
		} else {
			lines[i] = indent + flagStyle.Sprint(long) + rest
		}
	}
	return strings.Join(lines, "\n")
}

// colorMacros paints the /macro references of an example the way the input
// box paints candidates.
func colorMacros(text string) string {
	candidate := tui.DefaultColors().Candidate

	var sb strings.Builder
	last := 0
	for offset, token := range completion.Triggers(text) {
		sb.WriteString(text[last:offset])
		sb.WriteString(candidate.FgString(token))
		last = offset + len(token)
	}
	sb.WriteString(text[last:])
	return sb.String()
}

type usage struct {
	buf bytes.Buffer
}

func (u *usage) section(title string) {
	if u.buf.Len() > 0 {
		u.buf.WriteString("\n\n")
	}
	titleStyle.Fprint(&u.buf, title)
}

func (u *usage) command(name string, padding int, short string) {
	fmt.Fprintf(&u.buf, "\n  %s %s", commandStyle.Sprintf("%-*s", padding, name), shortStyle.Sprint(short))
}

func (u *usage) commands(c *cobra.Command, groupID string) {
	for _, sub := range c.Commands() {
		if sub.GroupID == groupID && (sub.IsAvailableCommand() || sub.Name() == "help") {
			u.command(sub.Name(), sub.NamePadding(), sub.Short)
		}
	}
}

// ColorUsageFunc renders the usage of c: usage lines, examples with their
// /macro references highlighted, commands by group, then flags.
func ColorUsageFunc(w io.Writer, c *cobra.Command) error {
	u := &usage{}

	u.section("Usage:")
	if c.Runnable() {
		u.buf.WriteString("\n  " + commandStyle.Sprint(c.UseLine()))
	}
	if c.HasAvailableSubCommands() {
		u.buf.WriteString("\n  " + commandStyle.Sprintf("%s [command]", c.CommandPath()))
	}

	if c.HasExample() {
		u.section("Examples:")
		u.buf.WriteString("\n" + colorMacros(c.Example))
	}

	if c.HasAvailableSubCommands() {
		if len(c.Groups()) == 0 {
			u.section("Available Commands:")
			u.commands(c, "")
		} else {
			for _, group := range c.Groups() {
				u.section(group.Title)
				u.commands(c, group.ID)
			}
			if !c.AllChildCommandsHaveGroup() {
				u.section("Other Commands:")
				u.commands(c, "")
			}
		}
	}

	if c.HasAvailableLocalFlags() {
		u.section("Flags:")
		u.buf.WriteString("\n" + colorFlags(c.LocalFlags().FlagUsages()))
	}
	if c.HasAvailableInheritedFlags() {
		u.section("Global Flags:")
		u.buf.WriteString("\n" + colorFlags(c.InheritedFlags().FlagUsages()))
	}

	if c.HasAvailableSubCommands() {
		u.buf.WriteString("\n\n")
		tipStyle.Fprintf(&u.buf, "Use \"%s [command] --help\" for more information about a command.", c.CommandPath())
	}
	u.buf.WriteString("\n")

	_, err := w.Write(u.buf.Bytes())
	return err
}
