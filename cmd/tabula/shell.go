package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sambeau/tabula/pkg/query"
	"github.com/sambeau/tabula/pkg/scope"
	"github.com/sambeau/tabula/pkg/session"
	tbl "github.com/sambeau/tabula/pkg/table"
)

var errQuit = errors.New("quit")

var shellCommands = []string{"ls", "cd", "set", "put", "meta", "hash", "help", "exit", "quit"}

// shell browses and edits one session interactively.
type shell struct {
	sess *session.Session
	loc  *scope.MemoryLocation
	base *tbl.Config
	out  io.Writer
	log  *zap.Logger
}

func (a *app) shellCmd() *cobra.Command {
	var sf scopeFlags
	cmd := &cobra.Command{
		Use:   "shell EDITOR [PATH]",
		Short: "Browse and edit a document interactively",
		Long: `Opens an editor's document and starts a prompt at PATH. Type 'help' for
commands. Edits stay in memory and are lost on exit.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			log, closeLog, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			base, err := cfg.TableConfig()
			if err != nil {
				return err
			}
			sess, loc, err := sf.open(cmd.Context(), cfg, log, args)
			if err != nil {
				if sess == nil || !sess.Initialized() {
					return err
				}
				fmt.Fprintf(a.stderr, "warning: %v (starting at root)\n", err)
			}

			sh := &shell{sess: sess, loc: loc, base: base, out: a.stdout, log: log}
			sh.run()
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}

// run starts the prompt loop with line editing, history and completion.
func (sh *shell) run() {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(sh.complete)

	historyFile := filepath.Join(os.TempDir(), ".tabula_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(sh.out, "%s: type 'help' for commands, Ctrl+D to quit\n", sh.sess.Editor().Name)
	for {
		input, err := line.Prompt(sh.prompt())
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(sh.out, "^C")
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(sh.out)
				return
			}
			fmt.Fprintf(sh.out, "Error reading input: %v\n", err)
			continue
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		if err := sh.exec(input); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

func (sh *shell) prompt() string {
	return sh.sess.Navigator().ScopeID() + "> "
}

// complete offers command names, then the fields of the current scope.
func (sh *shell) complete(input string) []string {
	var out []string
	cmd, rest, hasArg := strings.Cut(input, " ")
	if !hasArg {
		for _, c := range shellCommands {
			if strings.HasPrefix(c, cmd) {
				out = append(out, c)
			}
		}
		return out
	}
	if cmd != "cd" && cmd != "set" {
		return nil
	}
	for _, key := range sh.sess.Navigator().Metadata().Keys() {
		if strings.HasPrefix(key, rest) {
			out = append(out, cmd+" "+key)
		}
	}
	return out
}

// exec runs one command line.
func (sh *shell) exec(input string) error {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	// Values keep their spacing
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), cmd))

	switch cmd {
	case "ls":
		return sh.list(rest)
	case "cd":
		if len(args) != 1 {
			return fmt.Errorf("usage: cd PATH")
		}
		return sh.cd(args[0])
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: set SEGMENT JSON")
		}
		v, err := decodeValue(strings.TrimSpace(strings.TrimPrefix(rest, args[0])))
		if err != nil {
			return err
		}
		return sh.sess.WriteAndDescend(scope.ParseSegment(args[0]), v)
	case "put":
		if rest == "" {
			return fmt.Errorf("usage: put JSON")
		}
		v, err := decodeValue(rest)
		if err != nil {
			return err
		}
		return sh.sess.UpdateSubLevel(v)
	case "meta":
		data, err := json.MarshalIndent(sh.sess.Navigator().Metadata(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, string(data))
	case "hash":
		fmt.Fprintln(sh.out, "#"+sh.sess.Hash().String())
	case "help":
		fmt.Fprint(sh.out, `Commands:
  ls [TERM]          Show the table at this scope, optionally searched
  cd PATH            Move into PATH (segments separated by "/", ".." for up, "/" for root)
  set SEGMENT JSON   Store JSON under SEGMENT and move into it
  put JSON           Replace the value at this scope
  meta               Show the fields at this scope
  hash               Show the location hash
  exit, quit         Leave the shell
`)
	case "exit", "quit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return nil
}

func (sh *shell) list(search string) error {
	rows, tc := sh.sess.Project(sh.base)
	all := *tc
	all.Paginate = false
	engine := query.New(&all, query.WithLogger(sh.log.Named("query")))
	res := engine.Run(rows, query.Request{Search: search})
	if res.Total == 0 {
		if all.NoDataNote != "" {
			fmt.Fprintln(sh.out, all.NoDataNote)
		} else {
			fmt.Fprintln(sh.out, "(no rows)")
		}
		return nil
	}
	headers, cells := engine.Display(res.Rows)
	renderTable(sh.out, headers, cells)
	return nil
}

// cd applies each "/" separated step in turn and stops at the first that
// fails, leaving the scope where that step started.
func (sh *shell) cd(path string) error {
	if strings.HasPrefix(path, "/") {
		h := sh.sess.Hash()
		h.Path = scope.Path{}
		sh.loc.SetHash(h.String())
		if err := sh.sess.HashChange(); err != nil {
			return err
		}
	}
	for _, step := range strings.Split(path, "/") {
		var err error
		switch step {
		case "", ".":
			continue
		case "..":
			err = sh.sess.Ascend()
		default:
			seg := scope.ParseSegment(step)
			if seg.IsIndex {
				i := seg.Index
				err = sh.sess.HandleFieldClick(&i, "")
			} else {
				err = sh.sess.HandleFieldClick(nil, seg.Key)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeValue(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("invalid JSON value: %w", err)
	}
	return v, nil
}
