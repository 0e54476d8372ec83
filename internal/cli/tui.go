package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/tada/internal/app"
)

func runTUI(cmd *cobra.Command, configPath string) error {
	d, err := openDeps(configPath, true)
	if err != nil {
		return err
	}
	defer d.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if _, created, err := d.lists.EnsureDefaultList(ctx); err != nil {
		return fmt.Errorf("creating default list: %w", err)
	} else if created {
		d.log.Info("created default list")
	}

	d.engine.Start()
	defer d.engine.Stop()

	d.repl.Start(ctx)
	defer d.repl.Stop()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		d.sched.Run(ctx)
	}()
	defer func() {
		cancel()
		<-schedDone
	}()

	root := app.New(app.Deps{
		Lists:    d.lists,
		Status:   d.engine,
		Sync:     d.repl,
		Cleanup:  d.sched,
		Share:    d.sharing,
		Settings: d.settingsDeps(configPath),
		Log:      d.log.Named("ui"),
	})
	defer root.Close()

	p := tea.NewProgram(*root, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		d.log.Error("terminal ui exited", zap.Error(err))
		return fmt.Errorf("running terminal ui: %w", err)
	}
	return nil
}
