package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rogers-f/phasebook/internal/domain"
	"github.com/rogers-f/phasebook/internal/ipc"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show every phase with its status and the current phase",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			snap, err := a.bridge.Snapshot()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), snap)
			return nil
		}),
	}
}

func newShowCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show [phase]",
		Short: "Show a phase's activities and captured content (default: current phase)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			snap, err := a.bridge.Snapshot()
			if err != nil {
				return err
			}
			id := snap.CurrentPhaseID
			if len(args) == 1 {
				id = args[0]
			}
			p, ok := snap.Phase(id)
			if !ok {
				return domain.NewEngineError(domain.ErrPhaseNotFound.Code, fmt.Sprintf("%s: %q", domain.ErrPhaseNotFound.Message, id))
			}
			printPhase(cmd.OutOrStdout(), p, id == snap.CurrentPhaseID, raw)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print generated output without markdown rendering")
	return cmd
}

func newSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <phase>",
		Short: "Make a phase the current phase",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			snap, err := a.bridge.SelectPhase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current phase: %s\n", snap.CurrentPhaseID)
			return nil
		}),
	}
}

func newBeginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "begin <phase>",
		Short: "Start working on a phase (todo becomes in-progress)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			snap, err := a.bridge.BeginInteraction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p, _ := snap.Phase(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.ID, p.Status)
			return nil
		}),
	}
}

func newRecordCmd() *cobra.Command {
	var (
		input    string
		output   string
		complete bool
	)
	cmd := &cobra.Command{
		Use:   "record <phase>",
		Short: "Store user input and output on a phase",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			snap, err := a.bridge.RecordContent(cmd.Context(), args[0], input, output, complete)
			if err != nil {
				return err
			}
			p, _ := snap.Phase(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (current: %s)\n", p.ID, p.Status, snap.CurrentPhaseID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&input, "input", "", "user input for the phase")
	cmd.Flags().StringVar(&output, "output", "", "output for the phase")
	cmd.Flags().BoolVar(&complete, "complete", false, "also mark the phase completed")
	return cmd
}

func newCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <phase>",
		Short: "Mark a phase completed with the content it already holds",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			snap, err := a.bridge.Complete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: completed (current: %s)\n", args[0], snap.CurrentPhaseID)
			return nil
		}),
	}
}

func newGenerateCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "generate <phase> <instruction...>",
		Short: "Ask the AI assistant for help on a phase",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			id := args[0]
			instruction := strings.Join(args[1:], " ")
			if strings.TrimSpace(instruction) == "" {
				return domain.ErrEmptyInstruction
			}
			if _, err := a.bridge.BeginInteraction(cmd.Context(), id); err != nil {
				return err
			}
			_, out, err := a.bridge.Generate(cmd.Context(), id, instruction)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(out, raw))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print output without markdown rendering")
	return cmd
}

func newExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the workflow document to disk",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if dir != "" {
				a.bridge.ExportDir = dir
			}
			rec, err := a.bridge.Export(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", rec.FilePath, rec.SizeBytes)
			return nil
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to write into (default: export_dir)")
	return cmd
}

func newEventsCmd() *cobra.Command {
	var (
		since int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List logged workflow transitions",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			events, err := a.bridge.EventsSince(cmd.Context(), since, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(w, "(no events)")
				return nil
			}
			for _, ev := range events {
				ts := time.Unix(ev.CreatedAt, 0).Format(time.DateTime)
				fmt.Fprintf(w, "%6d  %s  %-18s %-8s %s\n", ev.Seq, ts, ev.EventType, ev.PhaseID, ev.PayloadJSON)
			}
			return nil
		}),
	}
	cmd.Flags().Int64Var(&since, "since", 0, "only events after this sequence number")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events (0 = all)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			srv := ipc.NewServer(&ipc.Handler{Bridge: a.bridge, Logger: a.logger}, addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("phasebook listening", "url", ipc.FormatListenURL(addr))
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phasebook %s (commit=%s, built=%s)\n", version, commit, date)
		},
	}
}
