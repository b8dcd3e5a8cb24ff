package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages game registration and lookup.
// It provides a thread-safe way to register and retrieve games by their command.
type Registry struct {
	games map[string]Game
	mu    sync.RWMutex
}

// NewRegistry creates a registry pre-populated with games.
func NewRegistry(games ...Game) (*Registry, error) {
	r := &Registry{games: make(map[string]Game)}
	for _, g := range games {
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a game to the registry.
// Registering a second game under the same command is an error.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Command() == "" {
		return fmt.Errorf("game command cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[g.Command()]; exists {
		return fmt.Errorf("game %q already registered", g.Command())
	}
	r.games[g.Command()] = g
	return nil
}

// Get retrieves a game by its command.
func (r *Registry) Get(command string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[command]
	return g, ok
}

// List returns all registered games sorted by command.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Command() < games[j].Command() })
	return games
}

// Commands returns all registered game commands, sorted.
func (r *Registry) Commands() []string {
	games := r.List()
	commands := make([]string, 0, len(games))
	for _, g := range games {
		commands = append(commands, g.Command())
	}
	return commands
}
