package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sambeau/tabula/pkg/query"
)

func (a *app) viewCmd() *cobra.Command {
	var (
		sf scopeFlags
		qf queryFlags
	)
	cmd := &cobra.Command{
		Use:   "view EDITOR [PATH]",
		Short: "Print a page of an editor's document as a table",
		Long: `Loads the editor's document, scopes into PATH (segments separated by
"/", array elements written index-N) and prints one page of the table.`,
		Example: `  tabula view people
  tabula view people index-0/tags
  tabula view 0 --filter age:GT:30 --sort age --order desc`,
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
			sess, _, err := sf.open(cmd.Context(), cfg, log, args)
			if err != nil {
				return err
			}

			rows, tc := sess.Project(base)
			req, err := qf.request(tc)
			if err != nil {
				return err
			}
			engine := query.New(tc, query.WithLogger(log.Named("query")))
			res := engine.Run(rows, req)

			headers, cells := engine.Display(res.Rows)
			nav := sess.Navigator()
			fmt.Fprintf(a.stdout, "%s (%s)\n", nav.ScopeID(), nav.Mode())
			if res.Total == 0 && tc.NoDataNote != "" {
				fmt.Fprintln(a.stdout, tc.NoDataNote)
				return nil
			}
			renderTable(a.stdout, headers, cells)
			fmt.Fprintf(a.stdout, "page %d of %d, %d rows\n", req.Page, res.TotalPages, res.Total)
			return nil
		},
	}
	sf.register(cmd)
	qf.register(cmd, true)
	return cmd
}
