package stats

import "sort"

// Store owns one Player per player id. It is not safe for concurrent
// mutation; ratings depend on strictly ordered updates.
type Store struct {
	players map[string]*Player
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{players: make(map[string]*Player)}
}

// Player looks up a player without creating one.
func (s *Store) Player(id string) (*Player, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.players[id]
	return p, ok
}

// Ensure returns the player for id, creating an empty record on first
// appearance. Only the accumulator's ingest path should call it.
func (s *Store) Ensure(id string) *Player {
	p, ok := s.players[id]
	if !ok {
		p = NewPlayer(id)
		s.players[id] = p
	}
	return p
}

// Len returns the number of tracked players.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.players)
}

// IDs returns all tracked player ids in sorted order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge moves every player from other into s. The two stores must track
// disjoint player sets (e.g. separate tours); an id present in both is
// reported and s is left unchanged.
func (s *Store) Merge(other *Store) (conflict string, ok bool) {
	for id := range other.players {
		if _, exists := s.players[id]; exists {
			return id, false
		}
	}
	for id, p := range other.players {
		s.players[id] = p
	}
	return "", true
}
