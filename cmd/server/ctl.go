package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	api "github.com/ipc-control-room/ipc-project/internal/api/http"
	"github.com/ipc-control-room/ipc-project/internal/client"
)

var (
	ctlAddr      string
	ctlActor     int
	ctlName      string
	ctlSenders   []int
	ctlReceivers []int
	ctlCapacity  int
	ctlWait      time.Duration
)

var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Talk to a running broker",
}

var ctlChannelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List open channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		channels, err := newClient().ListChannels(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, ch := range channels {
			fmt.Fprintf(out, "%d\t%s\t%s\tsenders=%v receivers=%v\n", ch.ID, ch.Kind, ch.Name, ch.Senders, ch.Receivers)
		}
		return nil
	},
}

var ctlCreateCmd = &cobra.Command{
	Use:   "create KIND",
	Short: "Create a stream, queue or shared-buffer channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := newClient().CreateChannel(cmd.Context(), api.CreateChannelRequest{
			Kind:      args[0],
			Name:      ctlName,
			Senders:   ctlSenders,
			Receivers: ctlReceivers,
			Capacity:  ctlCapacity,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s channel %d (%s)\n", view.Kind, view.ID, view.Name)
		return nil
	},
}

var ctlSendCmd = &cobra.Command{
	Use:   "send CHANNEL PAYLOAD",
	Short: "Send a text payload as --actor",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid channel id %q", args[0])
		}
		ok, err := newClient().Send(cmd.Context(), cid, ctlActor, args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("send refused by channel %d", cid)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "sent")
		return nil
	},
}

var ctlReceiveCmd = &cobra.Command{
	Use:   "receive CHANNEL",
	Short: "Receive one payload as --actor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid channel id %q", args[0])
		}
		msg, ok, err := newClient().Receive(cmd.Context(), cid, ctlActor, ctlWait)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "(nothing)")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t[%s]\n", msg.Payload, msg.ContentType)
		return nil
	},
}

func newClient() *client.Client {
	cfg := client.DefaultConfig()
	cfg.BaseURL = ctlAddr
	c := client.New(cfg)
	c.SetActor(ctlActor)
	return c
}

func init() {
	ctlCmd.PersistentFlags().StringVar(&ctlAddr, "addr", client.DefaultConfig().BaseURL, "broker base URL")
	ctlCmd.PersistentFlags().IntVar(&ctlActor, "actor", 0, "actor id to act as")

	ctlCreateCmd.Flags().StringVar(&ctlName, "name", "", "channel name")
	ctlCreateCmd.Flags().IntSliceVar(&ctlSenders, "senders", nil, "allowed sender ids (empty allows all)")
	ctlCreateCmd.Flags().IntSliceVar(&ctlReceivers, "receivers", nil, "allowed receiver ids (empty allows all)")
	ctlCreateCmd.Flags().IntVar(&ctlCapacity, "capacity", 0, "shared-buffer size in bytes")

	ctlReceiveCmd.Flags().DurationVar(&ctlWait, "wait", 0, "block up to this long (0 polls)")

	ctlCmd.AddCommand(ctlChannelsCmd, ctlCreateCmd, ctlSendCmd, ctlReceiveCmd)
	rootCmd.AddCommand(ctlCmd)
}
