package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"

	"github.com/SediraYasser20/DOLX/internal/app"
	"github.com/SediraYasser20/DOLX/internal/core"
)

const usage = "Available: price, post, show, list, delete, exported, set-accounting, set-project, clone, schema"

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	if err := Execute(ctx, svc, args, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}

// Execute runs one subcommand. JSON payloads are read from in and results written to out.
func Execute(ctx context.Context, svc app.ApplicationService, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("missing command\n" + usage)
	}

	switch args[0] {
	case "price", "pr":
		var req app.PriceLineRequest
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		result, err := svc.PriceLine(ctx, req)
		if err != nil {
			return fmt.Errorf("pricing failed: %w", err)
		}
		printPriceLine(out, result)

	case "post", "p":
		var req app.PostPaymentRequest
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		result, err := svc.PostPayment(ctx, req)
		if err != nil {
			return fmt.Errorf("posting failed: %w", err)
		}
		return writeJSON(out, result)

	case "show", "s":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		result, err := svc.GetPayment(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		return writeJSON(out, result)

	case "list", "ls":
		filter, err := parseFilter(args[1:])
		if err != nil {
			return err
		}
		result, err := svc.ListPayments(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}
		printPayments(out, result)

	case "delete", "del":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if err := svc.DeletePayment(ctx, id); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Fprintf(out, "Payment %d deleted.\n", id)

	case "exported", "exp":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		exported, err := svc.IsPaymentExported(ctx, id)
		if err != nil {
			return fmt.Errorf("export check failed: %w", err)
		}
		fmt.Fprintln(out, exported)

	case "set-accounting", "acc":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return errors.New("usage: app set-accounting <id> <accounting-code> [subledger-account]")
		}
		req := app.SetAccountingRequest{PaymentID: id, AccountingCode: args[2]}
		if len(args) > 3 {
			req.SubledgerAccount = args[3]
		}
		result, err := svc.SetAccountingCode(ctx, req)
		if err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		return writeJSON(out, result)

	case "set-project", "proj":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return errors.New("usage: app set-project <id> <project-id|0>")
		}
		projectID, err := strconv.Atoi(args[2])
		if err != nil || projectID < 0 {
			return fmt.Errorf("invalid project id %q", args[2])
		}
		result, err := svc.SetProject(ctx, app.SetProjectRequest{PaymentID: id, ProjectID: projectID})
		if err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		return writeJSON(out, result)

	case "clone", "cp":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		opts, err := parseCloneOptions(args[2:])
		if err != nil {
			return err
		}
		result, err := svc.ClonePayment(ctx, app.ClonePaymentRequest{PaymentID: id, CloneOptions: opts})
		if err != nil {
			return fmt.Errorf("clone failed: %w", err)
		}
		return writeJSON(out, result)

	case "schema":
		if len(args) < 2 {
			return errors.New("usage: app schema <price|post>")
		}
		return writeJSON(out, generateSchema(args[1]))

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

// generateSchema describes the stdin payload of a command.
func generateSchema(command string) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	switch command {
	case "price", "pr":
		return reflector.Reflect(&app.PriceLineRequest{})
	default:
		return reflector.Reflect(&app.PostPaymentRequest{})
	}
}

func idArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: app %s <payment-id>", args[0])
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid payment id %q", args[1])
	}
	return id, nil
}

func parseFilter(args []string) (core.MovementFilter, error) {
	var f core.MovementFilter
	var direction, reconciled string
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&f.AccountID, "account", 0, "bank account id")
	fs.StringVar(&direction, "direction", "", "debit or credit")
	fs.StringVar(&f.From, "from", "", "first payment date, YYYY-MM-DD")
	fs.StringVar(&f.To, "to", "", "last payment date, YYYY-MM-DD")
	fs.StringVar(&reconciled, "reconciled", "", "true or false")
	fs.IntVar(&f.Limit, "limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return f, fmt.Errorf("invalid list flags: %w", err)
	}
	f.Direction = core.Direction(strings.ToLower(direction))
	if reconciled != "" {
		b, err := strconv.ParseBool(reconciled)
		if err != nil {
			return f, fmt.Errorf("invalid -reconciled value %q", reconciled)
		}
		f.Reconciled = &b
	}
	return f, nil
}

func parseCloneOptions(args []string) (core.CloneOptions, error) {
	var o core.CloneOptions
	var direction, amount string
	fs := flag.NewFlagSet("clone", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.Label, "label", "", "label of the copy, default \"Copy of <label>\"")
	fs.StringVar(&o.PaymentDate, "date", "", "payment date, YYYY-MM-DD")
	fs.StringVar(&o.ValueDate, "value-date", "", "value date, YYYY-MM-DD, defaults to the payment date")
	fs.StringVar(&direction, "direction", "", "debit or credit")
	fs.StringVar(&amount, "amount", "", "unsigned amount")
	if err := fs.Parse(args); err != nil {
		return o, fmt.Errorf("invalid clone flags: %w", err)
	}
	o.Direction = core.Direction(strings.ToLower(direction))
	if o.Direction != "" && !o.Direction.Valid() {
		return o, fmt.Errorf("invalid -direction value %q", direction)
	}
	if amount != "" {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return o, fmt.Errorf("invalid -amount value %q", amount)
		}
		o.Amount = decimal.NewNullDecimal(d)
	}
	return o, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPriceLine(out io.Writer, result *app.PriceLineResult) {
	r := result.Resolution
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-58s\n", "LINE PRICE")
	fmt.Fprintf(out, "  Source   : %s (%s basis)\n", r.Source, r.PriceBasis)
	fmt.Fprintf(out, "  Tax rate : %s\n", displayRate(r))
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-30s %15s %15s\n", "", "EXCL. TAX", "INCL. TAX")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-30s %15s %15s\n", "Unit price", r.UnitPriceExclTax.StringFixed(2), r.UnitPriceInclTax.StringFixed(2))
	if r.ForeignUnitPriceExclTax.Valid {
		fmt.Fprintf(out, "  %-30s %15s %15s\n", "Unit price (currency)",
			r.ForeignUnitPriceExclTax.Decimal.StringFixed(2), r.ForeignUnitPriceInclTax.Decimal.StringFixed(2))
	}
	fmt.Fprintf(out, "  %-30s %15s %15s\n", "Minimum price", r.MinimumPriceExclTax.StringFixed(2), r.MinimumPriceInclTax.StringFixed(2))
	fmt.Fprintf(out, "  %-30s %15s\n", "Effective after discount", r.EffectivePrice.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-30s %15s\n", "Total excl. tax", result.Totals.TotalExclTax.StringFixed(2))
	fmt.Fprintf(out, "  %-30s %15s\n", "Tax", result.Totals.TotalTax.StringFixed(2))
	fmt.Fprintf(out, "  %-30s %15s\n", "Total incl. tax", result.Totals.TotalInclTax.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 62))
	if result.Rejected {
		fmt.Fprintf(out, "  REJECTED: %s\n", result.RejectionReason)
	} else if r.ViolatesMinimum {
		fmt.Fprintln(out, "  WARNING: below minimum price (waived)")
	}
}

func displayRate(r *core.PriceResolution) string {
	if r.TaxRateLabel != "" {
		return r.TaxRateLabel
	}
	return r.TaxRate.String()
}

func printPayments(out io.Writer, result *app.PaymentListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-6s %-10s %-22s %-7s %12s\n", "ID", "DATE", "LABEL", "METHOD", "AMOUNT")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, m := range result.Payments {
		label := truncate(m.Label, 22)
		marker := " "
		if m.BankLineReconciled {
			marker = "R"
		}
		fmt.Fprintf(out, "  %-6d %-10s %-22s %-7s %12s %s\n", m.ID, m.PaymentDate, label, m.PaymentMethod, m.SignedAmount().StringFixed(2), marker)
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

// truncate shortens s to at most width characters, marking the cut with "…".
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width-1]) + "…"
}
