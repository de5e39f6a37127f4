package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iidesho/auditflow/logevent"
	"github.com/spf13/cobra"
)

var pushRaw bool

var pushCmd = &cobra.Command{
	Use:   "push (login|operation) [json]",
	Short: "Push one audit event onto the buffer",
	Long: `Push one audit event onto the configured buffer. The event is read from
the second argument or from stdin. Unless --raw is given the payload is
validated and missing trace_id and operate_time are filled in.`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{string(logevent.CategoryLogin), string(logevent.CategoryOperation)},
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		buf, closeBuf, err := openBuffer(cmd.Context(), settings, nil)
		if err != nil {
			return err
		}
		defer closeBuf()
		return push(cmd.Context(), logevent.NewProducer(buf), logevent.Category(args[0]), payload, pushRaw)
	},
}

func init() {
	pushCmd.Flags().BoolVar(&pushRaw, "raw", false, "push the payload as is")
}

func readPayload(stdin io.Reader, args []string) (string, error) {
	if len(args) == 2 {
		return args[1], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func push(ctx context.Context, p *logevent.Producer, c logevent.Category, payload string, raw bool) error {
	if raw {
		return p.Raw(ctx, c, payload)
	}
	switch c {
	case logevent.CategoryLogin:
		e, err := logevent.Decode[logevent.LoginEvent](payload)
		if err != nil {
			return fmt.Errorf("invalid login event: %w", err)
		}
		return p.Login(ctx, e)
	case logevent.CategoryOperation:
		e, err := logevent.Decode[logevent.OperationEvent](payload)
		if err != nil {
			return fmt.Errorf("invalid operation event: %w", err)
		}
		return p.Operation(ctx, e)
	}
	fmt.Fprintf(os.Stderr, "categories: %s, %s\n", logevent.CategoryLogin, logevent.CategoryOperation)
	return fmt.Errorf("unknown category %q", c)
}
