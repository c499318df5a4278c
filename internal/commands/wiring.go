package commands

import (
	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/recon"
	"github.com/ledgerline/ledgerline/internal/store/sqlite"
)

// env bundles what every command needs after setup.
type env struct {
	cfg   *config.Config
	store *sqlite.Store
}

func (e *env) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func setup(cmd *cobra.Command) (*env, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	st, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: st}, nil
}

func (e *env) reconService() *recon.Service {
	log := logger.ForComponent(logger.New(), "recon")
	return recon.NewService(recon.Stores{
		Transactions: e.store,
		Documents:    e.store,
		Matches:      e.store,
		Statuses:     e.store,
	}, log, e.cfg.ReconConfig())
}
