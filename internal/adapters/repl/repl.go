package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SediraYasser20/DOLX/internal/adapters/cli"
	"github.com/SediraYasser20/DOLX/internal/app"
	"github.com/SediraYasser20/DOLX/internal/core"
)

var errExit = errors.New("exit")

// Run starts the interactive loop. Slash commands are dispatched deterministically;
// list, delete, exported, acc and proj share their implementation with the one-shot CLI.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer, baseCurrency string) {
	fmt.Fprintln(out, "DOLX pricing and various payments")
	fmt.Fprintf(out, "Base currency: %s\n", baseCurrency)
	fmt.Fprintln(out, "Type /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 62))

	dispatchSlash := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}
		cmd := strings.ToLower(tokens[0])
		args := tokens[1:]

		switch cmd {
		case "help", "h":
			printHelp(out)

		case "price", "pr":
			req, err := parsePriceArgs(args)
			if err != nil {
				return err
			}
			result, err := svc.PriceLine(ctx, req)
			if err != nil {
				return err
			}
			printPriceSummary(out, result)

		case "pay", "new-payment":
			handleNewPayment(ctx, reader, out, svc, baseCurrency)

		case "show", "s":
			if len(args) < 1 {
				fmt.Fprintln(out, "Usage: /show <payment-id>")
				return nil
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid payment id %q", args[0])
			}
			result, err := svc.GetPayment(ctx, id)
			if err != nil {
				return err
			}
			printPaymentDetail(out, result)

		case "clone", "cp":
			if len(args) < 1 {
				fmt.Fprintln(out, "Usage: /clone <payment-id>")
				return nil
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid payment id %q", args[0])
			}
			return handleClone(ctx, reader, out, svc, id)

		case "list", "ls", "delete", "del", "exported", "exp", "acc", "set-accounting", "proj", "set-project":
			return cli.Execute(ctx, svc, append([]string{cmd}, args...), reader, out)

		case "exit", "quit", "q":
			return errExit

		default:
			fmt.Fprintf(out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
		}
		return nil
	}

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}

		if !strings.HasPrefix(input, "/") {
			fmt.Fprintln(out, "Commands start with '/'. Type /help.")
			continue
		}
		if dispErr := dispatchSlash(input); dispErr != nil {
			if dispErr == errExit {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			fmt.Fprintf(out, "Error: %v\n", dispErr)
		}
		if err != nil {
			return
		}
	}
}

// parsePriceArgs reads: <product-id> <quantity> [discount%] [customer-id] [price-level]
func parsePriceArgs(args []string) (app.PriceLineRequest, error) {
	var req app.PriceLineRequest
	if len(args) < 2 {
		return req, errors.New("usage: /price <product-id> <quantity> [discount%] [customer-id] [price-level]")
	}

	productID, err := strconv.Atoi(args[0])
	if err != nil || productID <= 0 {
		return req, fmt.Errorf("invalid product id %q", args[0])
	}
	qty, err := decimal.NewFromString(args[1])
	if err != nil {
		return req, fmt.Errorf("invalid quantity %q", args[1])
	}
	req.PriceQuery = core.PriceQuery{ProductID: &productID, Quantity: qty, EntryMode: core.EntryModePredefined}

	if len(args) > 2 {
		if req.DiscountPercent, err = decimal.NewFromString(strings.TrimSuffix(args[2], "%")); err != nil {
			return req, fmt.Errorf("invalid discount %q", args[2])
		}
	}
	if len(args) > 3 {
		if req.CustomerID, err = strconv.Atoi(args[3]); err != nil {
			return req, fmt.Errorf("invalid customer id %q", args[3])
		}
	}
	if len(args) > 4 {
		if req.PriceLevel, err = strconv.Atoi(args[4]); err != nil {
			return req, fmt.Errorf("invalid price level %q", args[4])
		}
	}
	return req, nil
}
