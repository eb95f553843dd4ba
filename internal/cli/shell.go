package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mesh-intelligence/sqlbridge/pkg/bridge"
)

const (
	promptMain = "sql> "
	promptMore = "...> "
)

const shellHelp = `.help      show this message
.tables    list tables
.version   show versions
.quit      leave the shell
Statements end with ';' and may span several lines.`

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive SQL shell",
		Long: "Read SQL statements and run them through the bridge. When standard input\n" +
			"is a terminal the shell is interactive; otherwise statements are read line\n" +
			"by line and every result is printed.",
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

func runShell(cmd *cobra.Command, args []string) (err error) {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	ctx := cmd.Context()
	s, err := openSession(ctx, e)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(ctx); err == nil {
			err = cerr
		}
	}()

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p := tea.NewProgram(newShellModel(ctx, s), tea.WithInput(f), tea.WithOutput(cmd.OutOrStdout()))
		if _, err := p.Run(); err != nil {
			return sysError(fmt.Errorf("shell: %w", err))
		}
		return nil
	}
	return runLines(ctx, s, in, cmd.OutOrStdout())
}

// runLines executes statements read from r and prints every outcome. It
// keeps going after a failed statement and reports the failures at the end.
func runLines(ctx context.Context, s *session, r io.Reader, w io.Writer) error {
	var (
		pending statementBuffer
		failed  int
	)
	run := func(entry string) bool {
		out, quit, err := evaluate(ctx, s, entry)
		if err != nil {
			failed++
			fmt.Fprintln(w, "Error:", err)
		} else if out != "" {
			fmt.Fprint(w, out)
		}
		return quit
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if entry, ok := pending.add(sc.Text()); ok && run(entry) {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return sysError(fmt.Errorf("read input: %w", err))
	}
	if entry := pending.flush(); entry != "" {
		run(entry)
	}

	if failed > 0 {
		return userError(fmt.Errorf("%d statement(s) failed", failed))
	}
	return nil
}

// statementBuffer gathers input lines until they form a complete entry: a
// dot command on its own line, or SQL ending in a semicolon.
type statementBuffer struct {
	lines []string
}

func (b *statementBuffer) add(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(b.lines) == 0 {
		if trimmed == "" {
			return "", false
		}
		if strings.HasPrefix(trimmed, ".") {
			return trimmed, true
		}
	}
	b.lines = append(b.lines, line)
	if !strings.HasSuffix(trimmed, ";") {
		return "", false
	}
	return b.flush(), true
}

func (b *statementBuffer) flush() string {
	entry := strings.TrimSpace(strings.Join(b.lines, "\n"))
	b.lines = b.lines[:0]
	return entry
}

func (b *statementBuffer) empty() bool {
	return len(b.lines) == 0
}

// evaluate runs one shell entry and renders its outcome.
func evaluate(ctx context.Context, s *session, entry string) (out string, quit bool, err error) {
	sql := entry
	switch entry {
	case ".quit", ".exit":
		return "", true, nil
	case ".help":
		return shellHelp + "\n", false, nil
	case ".version":
		return fmt.Sprintf("sqlbridge v%s, sqlite %s\n", bridge.Version, bridge.EngineVersion()), false, nil
	case ".tables":
		sql = "SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		if strings.HasPrefix(entry, ".") {
			return "", false, fmt.Errorf("unknown command %q; try .help", entry)
		}
	}

	r, err := s.run(ctx, sql)
	if err != nil {
		return "", false, err
	}
	var buf bytes.Buffer
	if flags.jsonMode {
		if err := renderJSON(&buf, []*result{r}); err != nil {
			return "", false, err
		}
	} else {
		renderText(&buf, r)
	}
	return buf.String(), false, nil
}

// shellModel is the interactive shell. Statements run in tea commands, which
// block on the bridge off the UI goroutine.
type shellModel struct {
	ctx     context.Context
	sess    *session
	input   textinput.Model
	pending statementBuffer
	running bool
}

type evalMsg struct {
	out  string
	quit bool
	err  error
}

func newShellModel(ctx context.Context, s *session) *shellModel {
	ti := textinput.New()
	ti.Prompt = promptMain
	ti.Placeholder = "SELECT ...;"
	ti.Width = 80
	ti.Focus()
	return &shellModel{ctx: ctx, sess: s, input: ti}
}

func (m *shellModel) Init() tea.Cmd {
	return tea.Batch(
		tea.Println(titleStyle.Render("sqlbridge")+" "+m.sess.db.Path()),
		textinput.Blink,
	)
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.running {
				return m, nil
			}
			line := m.input.Value()
			echo := tea.Println(m.input.Prompt + line)
			m.input.Reset()

			entry, ok := m.pending.add(line)
			if !ok {
				if !m.pending.empty() {
					m.input.Prompt = promptMore
				}
				return m, echo
			}
			m.input.Prompt = promptMain
			m.running = true
			return m, tea.Sequence(echo, m.eval(entry))
		}

	case evalMsg:
		m.running = false
		switch {
		case msg.quit:
			return m, tea.Quit
		case msg.err != nil:
			return m, tea.Println(errorStyle.Render("Error: " + msg.err.Error()))
		case msg.out != "":
			return m, tea.Println(strings.TrimSuffix(msg.out, "\n"))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *shellModel) eval(entry string) tea.Cmd {
	return func() tea.Msg {
		out, quit, err := evaluate(m.ctx, m.sess, entry)
		return evalMsg{out: out, quit: quit, err: err}
	}
}

func (m *shellModel) View() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.running {
		b.WriteString(helpStyle.Render("running..."))
	} else {
		b.WriteString(helpStyle.Render("end statements with ; • .help • ctrl+d quit"))
	}
	return b.String()
}
