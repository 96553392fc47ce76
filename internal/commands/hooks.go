package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"evalgo.org/fireedge/internal/hooks"
)

var (
	hooksEndpoint string
	hooksResource string
	hooksID       string
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Inspect oned hook events",
}

var hooksWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print hook events for a resource straight from oned's ZeroMQ socket",
	Long: `Subscribe to oned's hook publisher and print every event as the JSON
frame a WebSocket client of /ws/hooks would receive.

Examples:
  fireedge hooks watch --resource vm
  fireedge hooks watch --resource vm --id 5 --endpoint tcp://frontend:2101`,
	RunE: runHooksWatch,
}

func init() {
	hooksWatchCmd.Flags().StringVar(&hooksEndpoint, "endpoint", "", "ZeroMQ endpoint (default: opennebula.zeromq)")
	hooksWatchCmd.Flags().StringVar(&hooksResource, "resource", "", "resource to watch (vm, host, image, ...)")
	hooksWatchCmd.Flags().StringVar(&hooksID, "id", "", "object id (default: every object)")
	_ = hooksWatchCmd.MarkFlagRequired("resource")

	hooksCmd.AddCommand(hooksWatchCmd)
}

func runHooksWatch(cmd *cobra.Command, args []string) error {
	topic, err := hooks.Topic(hooksResource, hooksID)
	if err != nil {
		return err
	}

	endpoint := hooksEndpoint
	if endpoint == "" {
		endpoint = cfg.OpenNebula.ZeroMQ
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := hooks.DialZMQ(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := sub.Subscribe(topic); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %q on %s\n", topic, endpoint)
	err = watch(sub, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// watch prints events from sub until Recv fails.
func watch(sub hooks.Subscriber, out, errOut io.Writer) error {
	for {
		msg, err := sub.Recv()
		if err != nil {
			return err
		}

		ev, err := hooks.Decode(msg)
		if err != nil {
			fmt.Fprintf(errOut, "skipping message on %q: %v\n", msg.Topic, err)
			continue
		}
		frame, err := ev.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(frame))
	}
}
