package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/go-openapi/inflect"
	"github.com/spf13/cobra"

	"github.com/syssam/dbal/dialect/sql/schema"
)

var (
	headerColor  = color.New(color.Bold)
	tableColor   = color.New(color.FgCyan, color.Bold)
	keyColor     = color.New(color.FgYellow)
	mutedColor   = color.New(color.FgHiBlack)
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	okColor      = color.New(color.FgGreen)
)

// count renders "1 table", "3 tables".
func count(n int, noun string) string {
	if n != 1 {
		noun = inflect.Pluralize(noun)
	}
	return fmt.Sprintf("%d %s", n, noun)
}

func (a *app) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			s, err := a.conn.Schema()
			if err != nil {
				return err
			}
			names, err := s.TableNames(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			fmt.Fprintln(out, mutedColor.Sprint(count(len(names), "table")))
			return nil
		}),
	}
}

func (a *app) inspectCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "inspect <table>...",
		Short: "Show columns, indexes and foreign keys of tables",
		Long: `Show the metadata of the named tables. Names may use the % prefix
marker, e.g. "%users" with --prefix app_ inspects app_users.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			s, err := a.conn.Schema()
			if err != nil {
				return err
			}
			for i, name := range args {
				t, err := s.TableSchema(cmd.Context(), name, refresh)
				if err != nil {
					return err
				}
				if t == nil {
					return fmt.Errorf("table %q not found", s.Adapter().TableName(name))
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				printTable(cmd.OutOrStdout(), t)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "read the database even if the table is cached")
	return cmd
}

func printTable(out io.Writer, t *schema.TableSchema) {
	fmt.Fprintln(out, tableColor.Sprint(t.Name))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tNATIVE\tNULL\tDEFAULT\tEXTRA")
	for _, c := range t.Columns {
		def := "-"
		if c.Default != nil {
			def = *c.Default
		}
		null := "NO"
		if c.Nullable {
			null = "YES"
		}
		var extra []string
		if c.PrimaryKey {
			extra = append(extra, keyColor.Sprint("PK"))
		}
		if c.AutoIncrement {
			extra = append(extra, "AUTO")
		}
		typ := c.Type
		if c.Size > 0 {
			typ = fmt.Sprintf("%s(%d)", c.Type, c.Size)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Name, typ, c.DBType, null, def, strings.Join(extra, " "))
	}
	w.Flush()
	if t.Sequence != "" {
		fmt.Fprintf(out, "sequence: %s\n", t.Sequence)
	}
	if len(t.Indexes) > 0 {
		fmt.Fprintln(out, headerColor.Sprint("indexes:"))
		for _, idx := range t.Indexes {
			kind := ""
			switch {
			case idx.Primary:
				kind = " " + keyColor.Sprint("PRIMARY")
			case idx.Unique:
				kind = " UNIQUE"
			}
			fmt.Fprintf(out, "  %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), kind)
		}
	}
	if len(t.ForeignKeys) > 0 {
		fmt.Fprintln(out, headerColor.Sprint("foreign keys:"))
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(out, "  %s (%s) -> %s (%s)", fk.Name, strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
			if fk.OnDelete != "" {
				fmt.Fprintf(out, " ON DELETE %s", fk.OnDelete)
			}
			if fk.OnUpdate != "" {
				fmt.Fprintf(out, " ON UPDATE %s", fk.OnUpdate)
			}
			fmt.Fprintln(out)
		}
	}
}
