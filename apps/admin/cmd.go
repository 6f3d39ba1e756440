package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"

	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/mutation"
	"github.com/trezcool/masomo-console/core/record"
	"github.com/trezcool/masomo-console/core/school"
	"github.com/trezcool/masomo-console/core/view"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	askConfirmFunc   = askConfirm        // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type (
	// backend is what the CLI needs from the ERP API client.
	backend interface {
		FetchAll(ctx context.Context, kind record.Kind) ([]record.Map, error)
	}

	localMirror interface {
		Records(ctx context.Context, kind record.Kind) ([]record.Map, error)
		Snapshot(ctx context.Context, kind record.Kind, recs []record.Map) error
	}

	commandLine struct {
		api       backend
		mirror    localMirror
		mutations *mutation.Coordinator
		formatter format.Formatter
		out       io.Writer
	}
)

// pairs collects repeated key=value flags.
type pairs map[string]string

func (p pairs) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (p pairs) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("%q: expected key=value", s)
	}
	p[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  list -kind KIND [-filter FACET=VALUE]... [-sort FIELD] [-order asc|desc] - list a collection")
	fmt.Fprintln(cli.out, "  delete -kind KIND -id ID [-yes] - delete a record (asks for confirmation)")
	fmt.Fprintln(cli.out, "  rename -kind KIND -id ID -to NEW_ID [-set FIELD=VALUE]... - change a record's identifier")
	fmt.Fprintln(cli.out, "  mirror -kind KIND - show the locally mirrored copy of a collection")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listKind := listCmd.String("kind", "", "The entity kind: class, teacher, student or subject.")
	listFilters := make(pairs)
	listCmd.Var(listFilters, "filter", "A facet filter, FACET=VALUE. Repeatable.")
	listSort := listCmd.String("sort", "", "The field to sort by.")
	listOrder := listCmd.String("order", "asc", "The sort order: asc or desc.")

	deleteCmd := flag.NewFlagSet("delete", flag.ContinueOnError)
	deleteKind := deleteCmd.String("kind", "", "The entity kind: class, teacher, student or subject.")
	deleteID := deleteCmd.String("id", "", "The identifier of the record to delete.")
	deleteYes := deleteCmd.Bool("yes", false, "Do not ask for confirmation.")

	renameCmd := flag.NewFlagSet("rename", flag.ContinueOnError)
	renameKind := renameCmd.String("kind", "", "The entity kind: teacher or subject.")
	renameID := renameCmd.String("id", "", "The current identifier.")
	renameTo := renameCmd.String("to", "", "The new identifier.")
	renameSet := make(pairs)
	renameCmd.Var(renameSet, "set", "A field to change along, FIELD=VALUE. Repeatable.")

	mirrorCmd := flag.NewFlagSet("mirror", flag.ContinueOnError)
	mirrorKind := mirrorCmd.String("kind", "", "The entity kind: class, teacher or student.")

	switch args[1] {
	case "list":
		if err := listCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := parseKind(listCmd, *listKind)
		if err != nil {
			return err
		}
		return cli.list(ctx, kind, listFilters, *listSort, listing.ParseOrder(*listOrder))
	case "delete":
		if err := deleteCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := parseKind(deleteCmd, *deleteKind)
		if err != nil {
			return err
		}
		if *deleteID == "" {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.delete(ctx, kind, *deleteID, *deleteYes)
	case "rename":
		if err := renameCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := parseKind(renameCmd, *renameKind)
		if err != nil {
			return err
		}
		if *renameID == "" || *renameTo == "" {
			renameCmd.Usage()
			return errHelp
		}
		if !record.Spec(kind).EditableID {
			return fmt.Errorf("the identifier of a %s cannot be changed", kind)
		}
		return cli.rename(ctx, kind, *renameID, *renameTo, renameSet)
	case "mirror":
		if err := mirrorCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := parseKind(mirrorCmd, *mirrorKind)
		if err != nil {
			return err
		}
		return cli.showMirror(ctx, kind)
	default:
		cli.printUsage()
		return errHelp
	}
}

func parseKind(cmd *flag.FlagSet, name string) (record.Kind, error) {
	if name == "" {
		cmd.Usage()
		return "", errHelp
	}
	return record.ParseKind(name)
}

func (cli *commandLine) controller(kind record.Kind) *listing.Controller[record.Map] {
	opts := school.ControllerOptions{Fetch: cli.api.FetchAll, Formatter: cli.formatter, Logger: logger}
	if cli.mirror != nil {
		opts.Snapshot = cli.mirror.Snapshot
	}
	return school.NewController(kind, opts)
}

func (cli *commandLine) list(ctx context.Context, kind record.Kind, filters pairs, sortField string, order listing.Order) error {
	c := cli.controller(kind)
	if err := c.Load(ctx); err != nil {
		return errors.New(mutation.UserMessage(err, "could not load "+record.Spec(kind).Plural))
	}
	for name, val := range filters {
		if err := c.SetFilter(name, val); err != nil {
			return err
		}
	}
	if sortField != "" {
		c.SetSort(sortField, order)
	}
	items := c.Items()
	cli.printTable(kind, items)
	fmt.Fprintf(cli.out, "%d of %d %s\n", len(items), len(c.All()), record.Spec(kind).Plural)
	return nil
}

func (cli *commandLine) delete(ctx context.Context, kind record.Kind, id string, yes bool) error {
	confirm := mutation.Yes
	if !yes {
		confirm = mutation.ConfirmFunc(askConfirmFunc)
	}
	out := cli.mutations.Delete(ctx, kind, id, confirm, cli.controller(kind))
	return cli.report(out)
}

func (cli *commandLine) rename(ctx context.Context, kind record.Kind, oldID, newID string, set pairs) error {
	recs, err := cli.api.FetchAll(ctx, kind)
	if err != nil {
		return errors.New(mutation.UserMessage(err, "could not load "+record.Spec(kind).Plural))
	}
	var req record.Map
	for _, rec := range recs {
		if rec.ID(kind) == oldID {
			req = rec.Clone()
			break
		}
	}
	if req == nil {
		return fmt.Errorf("%s %s not found", kind, oldID)
	}

	spec := record.Spec(kind)
	for _, alt := range spec.AltIDFields {
		delete(req, alt)
	}
	req[spec.IDField] = newID
	for k, v := range set {
		req[k] = v
	}
	for _, f := range spec.RenameNeeds {
		if req.Has(f) {
			continue
		}
		fmt.Fprintf(cli.out, "Enter %s:", f)
		val, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(val) == 0 {
			return fmt.Errorf("%s is required to change the identifier", f)
		}
		req[f] = string(val)
	}

	out := cli.mutations.Update(ctx, kind, oldID, req, cli.controller(kind))
	return cli.report(out)
}

func (cli *commandLine) showMirror(ctx context.Context, kind record.Kind) error {
	if record.Spec(kind).MirrorKey == "" {
		return fmt.Errorf("%s are not mirrored locally", record.Spec(kind).Plural)
	}
	recs, err := cli.mirror.Records(ctx, kind)
	if err != nil {
		return err
	}
	cli.printTable(kind, recs)
	fmt.Fprintf(cli.out, "%d %s mirrored\n", len(recs), record.Spec(kind).Plural)
	return nil
}

// report prints the outcome of a mutation; a failed one is returned as the error.
func (cli *commandLine) report(out mutation.Outcome) error {
	switch out.State {
	case mutation.Cancelled:
		fmt.Fprintln(cli.out, "Cancelled.")
		return nil
	case mutation.Failed:
		return errors.New(out.Message)
	case mutation.PartiallySucceeded:
		fmt.Fprintln(cli.out, "warning: "+out.Message)
		return nil
	}
	fmt.Fprintln(cli.out, out.Message)
	return nil
}

func (cli *commandLine) printTable(kind record.Kind, recs []record.Map) {
	tbl := view.NewTable(recs, school.Columns(kind, nil), cli.formatter, record.Spec(kind).IDFields()...)
	if tbl.Empty {
		fmt.Fprintln(cli.out, tbl.Message)
		return
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	headers := make([]string, 0, len(tbl.Headers))
	for _, h := range tbl.Headers {
		headers = append(headers, strings.ToUpper(h.Label))
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range tbl.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, c.Text)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}

func askConfirm(_ context.Context, prompt string) (bool, error) {
	var ok bool
	if err := survey.AskOne(&survey.Confirm{Message: prompt}, &ok); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, errAborted
		}
		return false, err
	}
	return ok, nil
}
