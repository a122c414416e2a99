package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-apicall/apiclient"
	"github.com/gaborage/go-apicall/transport"
)

// ErrCallFailed is returned when a call produced no result.
var ErrCallFailed = errors.New("call failed")

// NewGetCommand creates the get command.
func NewGetCommand(global *GlobalOptions) *cobra.Command {
	return newMethodCommand(global, http.MethodGet)
}

// NewPostCommand creates the post command.
func NewPostCommand(global *GlobalOptions) *cobra.Command {
	return newMethodCommand(global, http.MethodPost)
}

func newMethodCommand(global *GlobalOptions, method string) *cobra.Command {
	opts := &CallOptions{}
	name := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:   name + " <action> [key=value ...]",
		Short: fmt.Sprintf("Send a %s call to the configured API", method),
		Example: fmt.Sprintf(`  # Call the users endpoint with one argument
  apicall %s /users id=1 --config apicall.yaml`, name),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), global, opts, method, args[0], args[1:], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	addCallFlags(cmd, opts)
	return cmd
}

// NewCallCommand creates the call command for arbitrary methods.
func NewCallCommand(global *GlobalOptions) *cobra.Command {
	opts := &CallOptions{}

	cmd := &cobra.Command{
		Use:   "call <method> <action> [key=value ...]",
		Short: "Send a call with any HTTP method",
		Example: `  # Delete an item
  apicall call DELETE /items/7`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), global, opts, args[0], args[1], args[2:], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	addCallFlags(cmd, opts)
	return cmd
}

func addCallFlags(cmd *cobra.Command, opts *CallOptions) {
	cmd.Flags().BoolVarP(&opts.Retry, "retry", "r", false, "Retry failed attempts up to client.retry.maxattempts (3 when unset)")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Extra header as name:value (repeatable)")
	cmd.Flags().DurationVarP(&opts.Timeout, "timeout", "t", 0, "Per-call timeout (0 uses client.timeout)")
}

func runCall(ctx context.Context, global *GlobalOptions, opts *CallOptions, method, action string, pairs []string, stdout, stderr io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	args, err := parseArgs(pairs)
	if err != nil {
		return err
	}
	header, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, global, opts.Retry, stderr)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.close(ctx))
	}()

	callOpts := apiclient.CallOptions{Header: header, Retry: opts.Retry, Timeout: opts.Timeout}
	if opts.Retry {
		callOpts.Hooks.Retry = retryTransient
	}

	var res any
	switch strings.ToUpper(method) {
	case http.MethodGet:
		res, err = s.client.Get(ctx, action, args, callOpts)
	case http.MethodPost:
		res, err = s.client.Post(ctx, action, args, callOpts)
	default:
		res, err = s.client.Call(ctx, method, action, args, callOpts)
	}
	if err != nil {
		return err
	}
	if res == nil {
		if s.lastErr != nil {
			return fmt.Errorf("%w: %w", ErrCallFailed, s.lastErr)
		}
		return ErrCallFailed
	}

	return printResult(stdout, res)
}

// retryTransient retries network failures and timeouts. Validation errors
// would fail again.
func retryTransient(_ context.Context, call *apiclient.CallContext) (bool, error) {
	return !transport.IsErrorType(call.Error, transport.ValidationError), nil
}

func printResult(w io.Writer, res any) error {
	var out any = res
	if resp, ok := res.(*transport.Response); ok {
		switch {
		case resp.Decoded != nil:
			out = resp.Decoded
		default:
			out = string(resp.RawBody)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
