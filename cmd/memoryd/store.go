package main

import (
	"github.com/devhaven/memoryd/internal/config"
	"github.com/devhaven/memoryd/internal/storemanager"
)

// newManager builds the Manager every command uses to reach the global and
// project stores, rooted at the configured global database path.
func newManager() *storemanager.Manager {
	return storemanager.New(config.GetString("store.global-path"), nil)
}
