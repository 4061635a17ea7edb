package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/logia/internal/hostclient"
)

var (
	clientTimeout  time.Duration
	audioMIME      string
	incidentsLimit int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <scenario>",
	Short: "Send a disruption scenario to the Host router",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(cmd, func(ctx context.Context, c *hostclient.Client) (json.RawMessage, error) {
			return c.Resolve(ctx, strings.Join(args, " "))
		})
	},
}

var audioCmd = &cobra.Command{
	Use:   "audio <file>",
	Short: "Upload an audio clip for safety analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		contentType := audioMIME
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(args[0]))
		}
		return printResult(cmd, func(ctx context.Context, c *hostclient.Client) (json.RawMessage, error) {
			return c.ProcessAudio(ctx, args[0], contentType, f)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Host dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(cmd, func(ctx context.Context, c *hostclient.Client) (json.RawMessage, error) {
			return c.Status(ctx)
		})
	},
}

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List recent incidents from the Host journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(cmd, func(ctx context.Context, c *hostclient.Client) (json.RawMessage, error) {
			return c.Incidents(ctx, incidentsLimit)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{resolveCmd, audioCmd, statusCmd, incidentsCmd} {
		c.Flags().DurationVar(&clientTimeout, "timeout", hostclient.DefaultTimeout, "Request timeout")
	}
	audioCmd.Flags().StringVar(&audioMIME, "type", "", "MIME type of the clip (default from the file extension)")
	incidentsCmd.Flags().IntVarP(&incidentsLimit, "limit", "n", 20, "Maximum number of incidents")
}

func resolveHostURL() string {
	if hostURL != "" {
		return hostURL
	}
	return "http://" + cfg.Host.Listen
}

func printResult(cmd *cobra.Command, call func(context.Context, *hostclient.Client) (json.RawMessage, error)) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out, err := call(ctx, hostclient.New(resolveHostURL(), clientTimeout))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hostclient.Indent(out))
	return nil
}
