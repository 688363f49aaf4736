package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	ansi "github.com/leaanthony/go-ansi-parser"
	"github.com/spf13/cobra"

	"github.com/Hanaasagi/tlmode/cmd"
	"github.com/Hanaasagi/tlmode/internal/editor"
	"github.com/Hanaasagi/tlmode/internal/tui"
	"github.com/Hanaasagi/tlmode/pkg/clipboard"
	"github.com/Hanaasagi/tlmode/pkg/fuzzymatch"
)

func (a *app) runInteractive(c *cobra.Command) error {
	colors, err := a.cfg.Colors.Parse()
	if err != nil {
		return err
	}

	e, err := openEngine(c.Context(), a.cfg)
	if err != nil {
		return err
	}
	defer e.Close() // nolint: errcheck

	if err := e.watchMacroFile(a.cfg); err != nil {
		slog.Warn("Macro file is not watched", "error", err)
	}

	message, err := tui.Run(c.Context(), tui.Options{
		Loop:          e.loop,
		Macros:        e.macros,
		Prompt:        a.cfg.Core.Prompt,
		Colors:        colors,
		BridgeOptions: []editor.Option{editor.WithConfig(a.cfg.Core.EditorConfig())},
	})
	if errors.Is(err, tui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.OutOrStdout(), message)
	e.vocabulary.AddSentence(message)

	if a.cfg.Clipboard.CopyOnSend {
		cb := clipboard.New(
			clipboard.WithSystem(a.cfg.Clipboard.System),
			clipboard.WithOSC52(a.cfg.Clipboard.OSC52),
			clipboard.WithTmux(a.cfg.Clipboard.Tmux),
		)
		if err := cb.Copy(message); err != nil {
			slog.Warn("Failed to copy message", "error", err)
		}
	}
	return nil
}

// runPipe expands every line read from stdin.
func (a *app) runPipe(c *cobra.Command) error {
	e, err := openEngine(c.Context(), a.cfg)
	if err != nil {
		return err
	}
	defer e.Close() // nolint: errcheck

	return expandLines(c.InOrStdin(), c.OutOrStdout(), e.macros.ReplaceText)
}

func expandLines(r io.Reader, w io.Writer, expand func(string) string) error {
	scanner := bufio.NewScanner(r)
	out := bufio.NewWriter(w)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(out, expand(scanner.Text())); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return out.Flush()
}

func newExpandCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "expand [text...]",
		Short:   "Expand /macros in the arguments or in stdin",
		GroupID: cmd.GroupText,
		Example: `  tlmode expand "hello /peko"
  echo "/en ok" | tlmode expand`,
		RunE: func(c *cobra.Command, args []string) error {
			e, err := openEngine(c.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer e.Close() // nolint: errcheck

			if len(args) > 0 {
				fmt.Fprintln(c.OutOrStdout(), e.macros.ReplaceText(strings.Join(args, " ")))
				return nil
			}
			return expandLines(c.InOrStdin(), c.OutOrStdout(), e.macros.ReplaceText)
		},
	}
}

func newMacrosCmd(a *app) *cobra.Command {
	macrosCmd := &cobra.Command{
		Use:     "macros",
		Short:   "List or add macros",
		GroupID: cmd.GroupStore,
	}

	var filter string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List macros, optionally ranked by a fuzzy filter",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			colors, err := a.cfg.Colors.Parse()
			if err != nil {
				return err
			}
			e, err := openEngine(c.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer e.Close() // nolint: errcheck

			table := e.macros.Snapshot()
			names := slices.Sorted(maps.Keys(table))

			out := c.OutOrStdout()
			if filter == "" {
				for _, name := range names {
					fmt.Fprintf(out, "%s → %s\n", colors.Candidate.FgString(name), table[name])
				}
				return nil
			}

			// matched letters take the selected color
			for _, r := range fuzzymatch.NewMatcher(false).Match(filter, names) {
				label := fuzzymatch.Highlight(r, colors.Selected.FgString, colors.Candidate.FgString)
				fmt.Fprintf(out, "%s → %s\n", label, table[r.Text])
			}
			return nil
		},
	}
	listCmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy filter on macro names")

	addCmd := &cobra.Command{
		Use:   "add NAME EXPANSION",
		Short: "Add or replace a macro",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			name, expansion := args[0], args[1]
			if name == "" || strings.ContainsAny(name, " \t/") {
				return fmt.Errorf("invalid macro name %q", name)
			}

			e, err := openEngine(c.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer e.Close() // nolint: errcheck

			e.userMacros.Update(func(m map[string]string) map[string]string {
				next := maps.Clone(m)
				if next == nil {
					next = make(map[string]string)
				}
				next[name] = expansion
				return next
			})
			e.macros.AddMacro(name, expansion)

			fmt.Fprintf(c.OutOrStdout(), "/%s → %s\n", name, expansion)
			return nil
		},
	}

	macrosCmd.AddCommand(listCmd, addCmd)
	return macrosCmd
}

func newWordsCmd(a *app) *cobra.Command {
	wordsCmd := &cobra.Command{
		Use:     "words",
		Short:   "Manage the learned vocabulary",
		GroupID: cmd.GroupStore,
	}

	learnCmd := &cobra.Command{
		Use:   "learn FILE",
		Short: "Learn the words of a file (- for stdin); ANSI colors are ignored",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			text, err := readSource(c, args[0])
			if err != nil {
				return err
			}

			e, err := openEngine(c.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer e.Close() // nolint: errcheck

			before := e.vocabulary.Len()
			for _, line := range strings.Split(text, "\n") {
				if line = stripANSI(line); strings.TrimSpace(line) != "" {
					e.vocabulary.AddSentence(line)
				}
			}
			e.settle()

			fmt.Fprintf(c.OutOrStdout(), "learned %d new words (%d total)\n",
				e.vocabulary.Len()-before, e.vocabulary.Len())
			return nil
		},
	}

	completeCmd := &cobra.Command{
		Use:   "complete [PREFIX]",
		Short: "Print learned words starting with PREFIX",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			e, err := openEngine(c.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer e.Close() // nolint: errcheck

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			for _, word := range e.vocabulary.Complete(prefix) {
				if word != "" {
					fmt.Fprintln(c.OutOrStdout(), word)
				}
			}
			return nil
		},
	}

	wordsCmd.AddCommand(learnCmd, completeCmd)
	return wordsCmd
}

func readSource(c *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(c.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// stripANSI returns the printable text of a line with escape sequences.
func stripANSI(line string) string {
	elements, err := ansi.Parse(line)
	if err != nil {
		return line
	}

	var sb strings.Builder
	for _, element := range elements {
		sb.WriteString(element.Label)
	}
	return sb.String()
}
