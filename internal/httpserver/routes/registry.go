package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tripdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
)

// Registrar mounts one group of routes.
type Registrar func(r chi.Router, d deps.Deps)

type entry struct {
	name string
	reg  Registrar
}

var registry []entry

// Register adds a route group. Groups call it from init() and are mounted
// under /api in init() order.
func Register(name string, reg Registrar) {
	registry = append(registry, entry{name: name, reg: reg})
}

// RegisterAll mounts every group on r. Called once from the router setup.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		e.reg(r, d)
		if d.Logger != nil {
			d.Logger.Debug("routes registered", logger.String("group", e.name))
		}
	}
}
