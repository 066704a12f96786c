package hooks

// RegistrationInfo is the serializable view of one registration. The
// callback itself is deliberately absent.
type RegistrationInfo struct {
	ID       string `json:"id"`
	Event    string `json:"event"`
	Priority int    `json:"priority"`
	Owner    string `json:"owner"`
	Name     string `json:"name,omitempty"`
}

// Snapshot is a point-in-time, read-only view of the registry for
// inspection UIs. Mutating a snapshot has no effect on the registry.
type Snapshot struct {
	Actions map[string][]RegistrationInfo `json:"actions"`
	Filters map[string][]RegistrationInfo `json:"filters"`
	Total   int                           `json:"total"`
}

// Snapshot returns a serializable view of both tables, with registrations
// listed in dispatch order for each event.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Actions: make(map[string][]RegistrationInfo, len(r.actions)),
		Filters: make(map[string][]RegistrationInfo, len(r.filters)),
	}
	for event, regs := range r.actions {
		snap.Actions[event] = infosLocked(regs)
		snap.Total += len(regs)
	}
	for event, regs := range r.filters {
		snap.Filters[event] = infosLocked(regs)
		snap.Total += len(regs)
	}
	return snap
}

func infosLocked(regs []*Registration) []RegistrationInfo {
	infos := make([]RegistrationInfo, 0, len(regs))
	for _, reg := range regs {
		infos = append(infos, RegistrationInfo{
			ID:       reg.ID,
			Event:    reg.Event,
			Priority: reg.Priority,
			Owner:    reg.Owner,
			Name:     reg.Name,
		})
	}
	return infos
}
