package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/SediraYasser20/DOLX/internal/app"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Pricing:")
	fmt.Fprintln(out, "  /price <product-id> <qty> [discount%] [customer-id] [level]")
	fmt.Fprintln(out, "Various payments:")
	fmt.Fprintln(out, "  /pay                          record a payment interactively")
	fmt.Fprintln(out, "  /show <id>                    payment detail and state")
	fmt.Fprintln(out, "  /list [-direction d] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-reconciled true|false]")
	fmt.Fprintln(out, "  /delete <id>                  delete an unreconciled, unexported payment")
	fmt.Fprintln(out, "  /exported <id>                has the bank line reached bookkeeping?")
	fmt.Fprintln(out, "  /acc <id> <code> [subledger]  set the accounting code")
	fmt.Fprintln(out, "  /proj <id> <project-id|0>     link or unlink a project")
	fmt.Fprintln(out, "  /clone <id>                   copy a payment with a new date")
	fmt.Fprintln(out, "  /exit")
}

func printPriceSummary(out io.Writer, result *app.PriceLineResult) {
	r := result.Resolution
	fmt.Fprintf(out, "\nSource: %s   Basis: %s   Tax: %s\n", r.Source, r.PriceBasis, r.TaxRate.String())
	fmt.Fprintf(out, "  Unit price   : %s excl. / %s incl.\n", r.UnitPriceExclTax.StringFixed(2), r.UnitPriceInclTax.StringFixed(2))
	fmt.Fprintf(out, "  Minimum      : %s\n", r.Floor().StringFixed(2))
	fmt.Fprintf(out, "  After disc.  : %s\n", r.EffectivePrice.StringFixed(2))
	fmt.Fprintf(out, "  Line total   : %s excl. / %s incl.\n", result.Totals.TotalExclTax.StringFixed(2), result.Totals.TotalInclTax.StringFixed(2))
	if result.Rejected {
		fmt.Fprintf(out, "  REJECTED: %s\n", result.RejectionReason)
	}
}

func printPaymentDetail(out io.Writer, result *app.PaymentResult) {
	p := result.Payment
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  Payment #%d  %s\n", p.ID, result.State)
	fmt.Fprintf(out, "  %-18s %s\n", "Label", p.Label)
	fmt.Fprintf(out, "  %-18s %s (%s)\n", "Amount", p.SignedAmount().StringFixed(2), p.Direction)
	fmt.Fprintf(out, "  %-18s %s / %s\n", "Payment / value", p.PaymentDate, p.ValueDate)
	fmt.Fprintf(out, "  %-18s %s\n", "Method", p.PaymentMethod)
	if p.BankLineID != nil {
		reconciled := "no"
		if p.BankLineReconciled {
			reconciled = "yes (" + p.StatementRef + ")"
		}
		fmt.Fprintf(out, "  %-18s #%d, reconciled: %s\n", "Bank line", *p.BankLineID, reconciled)
	}
	if p.AccountingCode != "" {
		fmt.Fprintf(out, "  %-18s %s %s\n", "Accounting", p.AccountingCode, p.SubledgerAccount)
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
}
