package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SediraYasser20/DOLX/internal/app"
	"github.com/SediraYasser20/DOLX/internal/core"
)

func ask(reader *bufio.Reader, out io.Writer, label string) string {
	fmt.Fprint(out, label)
	raw, _ := reader.ReadString('\n')
	return strings.TrimSpace(raw)
}

// handleNewPayment runs an interactive various payment session.
func handleNewPayment(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService, baseCurrency string) {
	fmt.Fprintln(out, "Recording a various payment. Type 'cancel' at any prompt to abort.")

	var req app.PostPaymentRequest
	cancelled := func(v string) bool {
		if strings.EqualFold(v, "cancel") {
			fmt.Fprintln(out, "Payment cancelled.")
			return true
		}
		return false
	}

	if req.Label = ask(reader, out, "Label: "); cancelled(req.Label) {
		return
	}

	for {
		d := strings.ToLower(ask(reader, out, "Direction (d = debit, c = credit): "))
		if cancelled(d) {
			return
		}
		switch d {
		case "d", "debit":
			req.Direction = core.Debit
		case "c", "credit":
			req.Direction = core.Credit
		default:
			fmt.Fprintln(out, "  Enter d or c.")
			continue
		}
		break
	}

	for {
		raw := ask(reader, out, "Amount: ")
		if cancelled(raw) {
			return
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil || !amount.IsPositive() {
			fmt.Fprintln(out, "  Invalid amount.")
			continue
		}
		req.Amount = amount
		break
	}

	req.PaymentDate = ask(reader, out, "Payment date (YYYY-MM-DD, leave blank for today): ")
	if cancelled(req.PaymentDate) {
		return
	}
	if req.PaymentDate == "" {
		req.PaymentDate = time.Now().Format("2006-01-02")
	}

	for {
		raw := ask(reader, out, "Bank account id: ")
		if cancelled(raw) {
			return
		}
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			fmt.Fprintln(out, "  Invalid account id.")
			continue
		}
		req.AccountID = id
		break
	}

	if req.PaymentMethod = ask(reader, out, "Payment method (VIR, CHQ, LIQ, CB, PRE): "); cancelled(req.PaymentMethod) {
		return
	}
	if strings.EqualFold(req.PaymentMethod, "CHQ") {
		req.ChequeIssuer = ask(reader, out, "Cheque issuer: ")
		req.ChequeBank = ask(reader, out, "Cheque bank: ")
	}

	req.Currency = strings.ToUpper(ask(reader, out, fmt.Sprintf("Currency [%s]: ", baseCurrency)))
	if req.Currency == "" {
		req.Currency = baseCurrency
	}
	req.AccountingCode = ask(reader, out, "Accounting code (optional): ")

	sign := "+"
	if req.Direction == core.Debit {
		sign = "-"
	}
	fmt.Fprintf(out, "\n  %s  %s%s %s  on %s  via %s\n", req.Label, sign, req.Amount.StringFixed(2), req.Currency, req.PaymentDate, strings.ToUpper(req.PaymentMethod))
	choice := strings.ToLower(ask(reader, out, "Post this payment? (y/n): "))
	if choice != "y" && choice != "yes" {
		fmt.Fprintln(out, "Payment cancelled.")
		return
	}

	result, err := svc.PostPayment(ctx, req)
	if err != nil {
		fmt.Fprintf(out, "Payment FAILED: %v\n", err)
		return
	}
	fmt.Fprintf(out, "\nPayment POSTED (ID: %d)\n", result.Payment.ID)
	printPaymentDetail(out, result)
}

// handleClone copies a payment. Blank answers keep the source values.
func handleClone(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService, id int) error {
	src, err := svc.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	p := src.Payment
	printPaymentDetail(out, src)

	req := app.ClonePaymentRequest{PaymentID: id}
	req.Label = ask(reader, out, fmt.Sprintf("Label [Copy of %s]: ", p.Label))
	req.PaymentDate = ask(reader, out, fmt.Sprintf("Payment date [%s]: ", p.PaymentDate))
	req.ValueDate = ask(reader, out, "Value date (leave blank for the payment date): ")
	for {
		raw := ask(reader, out, fmt.Sprintf("Amount [%s]: ", p.Amount.StringFixed(2)))
		if raw == "" {
			break
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil || !amount.IsPositive() {
			fmt.Fprintln(out, "  Invalid amount.")
			continue
		}
		req.Amount = decimal.NewNullDecimal(amount)
		break
	}

	choice := strings.ToLower(ask(reader, out, "Clone this payment? (y/n): "))
	if choice != "y" && choice != "yes" {
		fmt.Fprintln(out, "Clone cancelled.")
		return nil
	}
	result, err := svc.ClonePayment(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPayment CLONED (ID: %d)\n", result.Payment.ID)
	printPaymentDetail(out, result)
	return nil
}
