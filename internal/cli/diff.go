package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/dbal/dialect/sql/schema"
)

// writeSnapshot exports the cache of s to path.
func writeSnapshot(path string, s *schema.Schema) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := s.Export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readSnapshot loads the tables of a snapshot file written for the dialect
// of the connection.
func (a *app) readSnapshot(path string) ([]*schema.TableSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()
	s, err := schema.New(a.conn.Adapter())
	if err != nil {
		return nil, err
	}
	if err := s.Import(f); err != nil {
		return nil, err
	}
	return s.Tables(), nil
}

func (a *app) snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Save the schema of every table to a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			s, err := a.conn.Schema()
			if err != nil {
				return err
			}
			tables, err := s.TableSchemas(cmd.Context(), true)
			if err != nil {
				return err
			}
			if err := writeSnapshot(args[0], s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s to %s\n", count(len(tables), "table"), args[0])
			return nil
		}),
	}
}

func (a *app) diffCmd() *cobra.Command {
	var (
		dropColumn, dropTable, dropIndex, nullToNotNull bool
	)
	cmd := &cobra.Command{
		Use:   "diff <snapshot>",
		Short: "Report the schema changes made since a snapshot",
		Long: `Compare the live schema with a file written by "dbal snapshot". Dropped
tables, columns and indexes are errors unless allowed by a flag; other risky
changes are reported as warnings. The command fails when errors are found.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			before, err := a.readSnapshot(args[0])
			if err != nil {
				return err
			}
			s, err := a.conn.Schema()
			if err != nil {
				return err
			}
			after, err := s.TableSchemas(cmd.Context(), true)
			if err != nil {
				return err
			}
			var opts []schema.ValidateOption
			for allowed, opt := range map[*bool]schema.ValidateOption{
				&dropColumn:    schema.AllowDropColumn(),
				&dropTable:     schema.AllowDropTable(),
				&dropIndex:     schema.AllowDropIndex(),
				&nullToNotNull: schema.AllowNullToNotNull(),
			} {
				if *allowed {
					opts = append(opts, opt)
				}
			}
			return report(cmd.OutOrStdout(), schema.ValidateDiff(before, after, opts...))
		}),
	}
	flags := cmd.Flags()
	flags.BoolVar(&dropColumn, "allow-drop-column", false, "accept dropped columns")
	flags.BoolVar(&dropTable, "allow-drop-table", false, "accept dropped tables")
	flags.BoolVar(&dropIndex, "allow-drop-index", false, "accept dropped indexes")
	flags.BoolVar(&nullToNotNull, "allow-null-to-not-null", false, "accept columns changed to NOT NULL")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the live schema for structural problems",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			s, err := a.conn.Schema()
			if err != nil {
				return err
			}
			tables, err := s.TableSchemas(cmd.Context(), true)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), schema.ValidateSchema(tables))
		}),
	}
}

// errIssues is returned when a check found errors, after they were printed.
var errIssues = errors.New("schema check failed")

func report(out io.Writer, r *schema.ValidationResult) error {
	if !r.HasErrors() && !r.HasWarnings() {
		fmt.Fprintln(out, okColor.Sprint("No issues found"))
		return nil
	}
	for _, e := range r.Errors {
		fmt.Fprintf(out, "%s %s", errorColor.Sprint("error:"), e.Error())
		if e.Breaking {
			fmt.Fprint(out, " [BREAKING]")
		}
		fmt.Fprintln(out)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "%s %s\n", warningColor.Sprint("warning:"), w.Error())
	}
	fmt.Fprintln(out, mutedColor.Sprintf("%s, %s", count(len(r.Errors), "error"), count(len(r.Warnings), "warning")))
	if r.HasErrors() {
		return errIssues
	}
	return nil
}
