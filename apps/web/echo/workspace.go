package echoweb

import (
	"sync"

	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/record"
	"github.com/trezcool/masomo-console/core/school"
)

// workspace holds one list controller per kind for the signed-in console user.
// A controller is mounted (fetched) the first time its page is viewed.
type workspace struct {
	opts school.ControllerOptions

	mu          sync.Mutex
	controllers map[record.Kind]*listing.Controller[record.Map]
}

func newWorkspace(opts school.ControllerOptions) *workspace {
	return &workspace{opts: opts, controllers: make(map[record.Kind]*listing.Controller[record.Map])}
}

func (ws *workspace) controller(kind record.Kind) *listing.Controller[record.Map] {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	c, ok := ws.controllers[kind]
	if !ok {
		c = school.NewController(kind, ws.opts)
		ws.controllers[kind] = c
	}
	return c
}

// loaded returns the controller of kind when it was already mounted.
func (ws *workspace) loaded(kind record.Kind) (*listing.Controller[record.Map], bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	c, ok := ws.controllers[kind]
	return c, ok && c.Loaded()
}
