package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sambeau/tabula/pkg/query"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		sf    scopeFlags
		qf    queryFlags
		title string
		out   string
		dir   string
		gz    bool
	)
	cmd := &cobra.Command{
		Use:   "export EDITOR [PATH]",
		Short: "Export every matching row at a scope as CSV",
		Example: `  tabula export people > people.csv
  tabula export people --out people.csv.gz
  tabula export people --dir exports --gzip --title "People report"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "" && dir != "" {
				return fmt.Errorf("--out and --dir are mutually exclusive")
			}
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
			sess, _, err := sf.open(cmd.Context(), cfg, log, args)
			if err != nil {
				return err
			}

			rows, tc := sess.Project(base)
			tc.Paginate = false
			req, err := qf.request(tc)
			if err != nil {
				return err
			}
			engine := query.New(tc, query.WithLogger(log.Named("query")))
			res := engine.Run(rows, req)

			if title == "" {
				title = sess.Editor().Name
			}

			switch {
			case dir != "":
				fe := query.FileExporter{Dir: dir, Gzip: gz}
				if err := engine.Export(res.Rows, title, fe); err != nil {
					return err
				}
				fmt.Fprintf(a.stderr, "wrote %d rows to %s\n", res.Total, fe.Path(title))
				return nil
			case out != "" && out != "-":
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				cw := query.CSVWriter{W: f, Gzip: gz || strings.HasSuffix(out, ".gz")}
				if err := engine.Export(res.Rows, title, cw); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			}
			return engine.Export(res.Rows, title, query.CSVWriter{W: a.stdout, Gzip: gz})
		},
	}
	sf.register(cmd)
	qf.register(cmd, false)
	cmd.Flags().StringVarP(&title, "title", "t", "", "Export title (default: the editor name)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout (gzip when it ends in .gz)")
	cmd.Flags().StringVar(&dir, "dir", "", "Write <title>.csv into this directory")
	cmd.Flags().BoolVar(&gz, "gzip", false, "Gzip the output")
	return cmd
}
