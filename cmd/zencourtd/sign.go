package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cladams7905/zencourt-sub006/inbound"
	"github.com/cladams7905/zencourt-sub006/webhook"
)

func readPayload(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func newSignCommand() *cobra.Command {
	var (
		secret string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print signature and timestamp headers for a payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}
			body, err := readPayload(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", webhook.HeaderSignature, webhook.Sign(body, secret))
			fmt.Fprintf(out, "%s: %d\n", webhook.HeaderTimestamp, time.Now().Unix())
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("WEBHOOK_SECRET"), "shared secret")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "payload file, - for stdin")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var (
		secret    string
		file      string
		signature string
		timestamp string
		tolerance time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a payload against its signature and timestamp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := readPayload(file)
			if err != nil {
				return err
			}
			if timestamp == "" {
				timestamp = strconv.FormatInt(time.Now().Unix(), 10)
			}

			header := http.Header{}
			header.Set(inbound.HeaderSignature, signature)
			header.Set(inbound.HeaderTimestamp, timestamp)

			v := inbound.NewVerifier(secret, inbound.WithTolerance(tolerance))
			if _, err := v.Verify(header, body); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("INBOUND_WEBHOOK_SECRET"), "shared secret")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "payload file, - for stdin")
	cmd.Flags().StringVar(&signature, "signature", "", "hex HMAC-SHA256 signature")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "timestamp header value (default now)")
	cmd.Flags().DurationVar(&tolerance, "tolerance", inbound.DefaultTolerance, "allowed clock skew")
	return cmd
}
