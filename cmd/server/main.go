package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipc-control-room/ipc-project/internal/domain/process"
	"github.com/ipc-control-room/ipc-project/internal/domain/registry"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/config"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/server"
)

var (
	// CLI flags
	port    string
	host    string
	seedDir string
	devMode bool

	demoDuration time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ipc-broker",
	Short: "IPC Control Room - authorized channels between logical processes",
	Long: `ipc-broker hosts streams, message queues and shared buffers between
logical processes, checks every send and receive against the channel's
allow-lists, and supervises background workers that talk over them.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the broker over HTTP",
	RunE:  runServe,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a headless demo and print the log stream",
	RunE:  runDemo,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&port, "port", "", "server port (overrides PORT)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "bind address (overrides HOST)")
	rootCmd.PersistentFlags().StringVar(&seedDir, "seed-dir", "", "channel topology directory (overrides IPC_SEED_DIR)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "development logging")

	demoCmd.Flags().DurationVar(&demoDuration, "duration", 3*time.Second, "how long to run the demo")

	rootCmd.AddCommand(serveCmd, demoCmd)
}

// loadConfig reads the environment, then applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if seedDir != "" {
		cfg.IPC.SeedDir = seedDir
	}
	if devMode {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

// runDemo wires a queue with an emitter and an echo worker, plus a locked
// stream that an intruder keeps knocking on, and prints what happens.
func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.RateLimit.Enabled = false

	srv, err := server.NewServer(cfg, logging.NewNop())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close(context.Background())

	out := cmd.OutOrStdout()
	srv.Hub().Register(func(message string, level logging.Level) {
		fmt.Fprintf(out, "%-8s %s\n", level, message)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := srv.Registry()
	sup := srv.Supervisor()

	gui := sup.Register("gui", "Viewer")
	_, pings, err := reg.Create(ctx, registry.CreateRequest{Kind: "queue", Name: "pings"})
	if err != nil {
		return err
	}
	_, locked, err := reg.Create(ctx, registry.CreateRequest{
		Kind:             "stream",
		Name:             "locked",
		AllowedSenders:   security.FromInts([]int{gui.ID}),
		AllowedReceivers: security.FromInts([]int{gui.ID}),
	})
	if err != nil {
		return err
	}

	specs := []process.Spec{
		process.EmitterSpec{Channel: pings, Sender: security.ActorID(gui.ID)},
		process.EchoSpec{Channel: pings},
		process.EmitterSpec{Name: "Intruder", Channel: locked, Sender: 99, Marker: "LET ME IN"},
	}
	outputs := make([]*process.Output, 0, len(specs))
	for _, spec := range specs {
		_, _, output, err := sup.Spawn(ctx, spec)
		if err != nil {
			return err
		}
		outputs = append(outputs, output)
	}

	select {
	case <-time.After(demoDuration):
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Workers.ShutdownTimeout)
	defer cancel()
	if err := sup.Shutdown(shutdownCtx); err != nil {
		return err
	}

	fmt.Fprintln(out, "--- worker output ---")
	for _, output := range outputs {
		for _, line := range output.Drain() {
			fmt.Fprintf(out, "[%d] %s\n", line.WorkerID, line.Text)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
