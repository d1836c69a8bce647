// Package modkit provides module wiring and core deps
package modkit

import (
	"callrota/internal/modkit/repokit"
	"callrota/internal/platform/config"
	"callrota/internal/platform/logger"
	"callrota/internal/platform/store"
)

// Deps holds the infrastructure handed to every module
// PG and Notify are nil when Postgres is disabled, CH when ClickHouse is
type Deps struct {
	Log    logger.Logger
	Cfg    config.Conf
	PG     repokit.TxRunner
	Notify store.Listener
	CH     store.Clickhouse
}

// FromStore copies the opened backends into Deps
func FromStore(cfg config.Conf, st *store.Store) Deps {
	d := Deps{Cfg: cfg, Log: *logger.Get()}
	if st == nil {
		return d
	}
	d.PG, d.Notify, d.CH = st.PG, st.Notify, st.CH
	return d
}
