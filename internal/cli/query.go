package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/dbal/dialect/sql"
)

// parseParams turns name=value flags into statement parameters.
func parseParams(flags []string) (sql.Params, error) {
	params := make(sql.Params, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		name = strings.TrimPrefix(strings.TrimSpace(name), ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, want name=value", f)
		}
		params[name] = value
	}
	return params, nil
}

func (a *app) queryCmd() *cobra.Command {
	var flags []string
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a statement and print the rows it returns",
		Long: `Run a statement and print its rows. {{table}} and [[column]] are quoted for
the dialect and named parameters are bound from --param:

  dbal query "SELECT * FROM {{%users}} WHERE [[age]] > :age" --param age=18`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(flags)
			if err != nil {
				return err
			}
			rows, err := a.conn.CreateCommand(args[0], params).QueryAll(cmd.Context())
			if err != nil {
				return err
			}
			printRows(cmd.OutOrStdout(), rows)
			return nil
		}),
	}
	cmd.Flags().StringArrayVar(&flags, "param", nil, "named parameter as name=value, repeatable")
	return cmd
}

func (a *app) execCmd() *cobra.Command {
	var (
		flags       []string
		invalidates []string
	)
	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Run a statement that returns no rows",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(flags)
			if err != nil {
				return err
			}
			n, err := a.conn.CreateCommand(args[0], params).Invalidates(invalidates...).Execute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s affected\n", count(int(n), "row"))
			return nil
		}),
	}
	cmd.Flags().StringArrayVar(&flags, "param", nil, "named parameter as name=value, repeatable")
	cmd.Flags().StringSliceVar(&invalidates, "invalidates", nil, "tables whose cached schema the statement changes")
	return cmd
}

// printRows writes rows as a table with the columns in name order.
func printRows(out io.Writer, rows []map[string]any) {
	if len(rows) == 0 {
		fmt.Fprintln(out, mutedColor.Sprint("(0 rows)"))
		return
	}
	cols := slices.Sorted(maps.Keys(rows[0]))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(cols, "\t")))
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if v := row[c]; v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Fprintln(out, mutedColor.Sprintf("(%s)", count(len(rows), "row")))
}
