package graph

import (
	"fmt"
	"sort"
	"strings"
)

// FindAllPaths returns every simple airport sequence from source to destination
// using at most maxLegs flights. It works on airports only and ignores which
// parallel flight would serve each hop. An empty result means no route exists
// within the hop limit.
func (n *FlightNetwork) FindAllPaths(source, destination string, maxLegs int) ([][]string, error) {
	if !n.HasAirport(source) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAirport, source)
	}
	if !n.HasAirport(destination) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAirport, destination)
	}
	if source == destination || maxLegs < 1 {
		return [][]string{}, nil
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	unique := make(map[string][]string)
	visited := map[string]bool{source: true}
	path := []string{source}

	var walk func(current string)
	walk = func(current string) {
		for _, next := range n.neighbors[current] {
			if visited[next] {
				continue
			}
			if next == destination {
				found := append(append([]string{}, path...), next)
				unique[strings.Join(found, "\x1f")] = found
				continue
			}
			// one more hop is needed after next
			if len(path) >= maxLegs {
				continue
			}
			visited[next] = true
			path = append(path, next)
			walk(next)
			path = path[:len(path)-1]
			delete(visited, next)
		}
	}
	walk(source)

	keys := make([]string, 0, len(unique))
	for k := range unique {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	paths := make([][]string, 0, len(keys))
	for _, k := range keys {
		paths = append(paths, unique[k])
	}
	return paths, nil
}
