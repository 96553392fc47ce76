package command

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog is a concurrency-safe registry of commands keyed by name.
type Catalog struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{commands: make(map[string]Command)}
}

// Register validates and adds a command.
func (c *Catalog) Register(cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.commands[cmd.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name)
	}
	c.commands[cmd.Name] = cmd
	return nil
}

// MustRegister is Register for static tables.
func (c *Catalog) MustRegister(cmds ...Command) {
	for _, cmd := range cmds {
		if err := c.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the command with the given dotted name.
func (c *Catalog) Lookup(name string) (Command, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cmd, ok := c.commands[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return cmd, nil
}

// LookupRoute finds the command answering /api/<resource>/<segments...>.
// The longest prefix of segments that names a command wins; the rest are
// returned as resource parameters. For example ["disksaveas","5","0"] under
// "vm" matches vm.disksaveas with params ["5","0"].
func (c *Catalog) LookupRoute(resource string, segments []string) (Command, []string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for n := len(segments); n > 0; n-- {
		name := resource
		for _, s := range segments[:n] {
			name += "." + s
		}
		if cmd, ok := c.commands[name]; ok {
			return cmd, segments[n:], nil
		}
	}
	return Command{}, nil, fmt.Errorf("%w: /%s", ErrUnknownCommand, joinPath(resource, segments))
}

// Names returns all command names sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all commands sorted by name.
func (c *Catalog) All() []Command {
	names := c.Names()

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Command, 0, len(names))
	for _, name := range names {
		out = append(out, c.commands[name])
	}
	return out
}

// Len returns the number of registered commands.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.commands)
}

func joinPath(resource string, segments []string) string {
	p := resource
	for _, s := range segments {
		p += "/" + s
	}
	return p
}
