// ABOUTME: Alias resolution from arbitrary incoming agent identifiers to canonical slot ids.
// ABOUTME: Exact id match wins, then exact type-field match, then the closed alias table.
package roster

// Resolve maps a single identifier to a canonical slot id. The identifier
// must equal a canonical id or one of the listed aliases exactly.
func Resolve(identifier string) (string, bool) {
	if identifier == "" {
		return "", false
	}
	if _, ok := canonical[identifier]; ok {
		return identifier, true
	}
	id, ok := aliasIndex[identifier]
	return id, ok
}

// ResolveEvent picks the slot an event belongs to. Precedence is exact id
// field match, then exact type field match, then Resolve over the id, type
// and name fields in that order. The first match wins.
func ResolveEvent(evt Event) (string, bool) {
	if _, ok := canonical[evt.ID]; ok {
		return evt.ID, true
	}
	if _, ok := canonical[evt.Type]; ok {
		return evt.Type, true
	}
	for _, candidate := range []string{evt.ID, evt.Type, evt.Name} {
		if id, ok := Resolve(candidate); ok {
			return id, true
		}
	}
	return "", false
}
