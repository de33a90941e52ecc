package audio

import "sort"

// TrackedInstance is an ephemeral channel created for one PlayTracked call.
type TrackedInstance struct {
	ID      InstanceID
	Clip    *Clip
	Channel Channel
}

// TrackedRegistry hands out instance ids and keeps the live instances.
// Ids start at zero and are never reused.
type TrackedRegistry struct {
	next      InstanceID
	instances map[InstanceID]*TrackedInstance
}

// NewTrackedRegistry creates an empty registry.
func NewTrackedRegistry() *TrackedRegistry {
	return &TrackedRegistry{instances: make(map[InstanceID]*TrackedInstance)}
}

// Next returns the id the next Add will assign.
func (r *TrackedRegistry) Next() InstanceID {
	return r.next
}

// Add registers ch under a fresh id.
func (r *TrackedRegistry) Add(clip *Clip, ch Channel) InstanceID {
	id := r.next
	r.next++
	r.instances[id] = &TrackedInstance{ID: id, Clip: clip, Channel: ch}
	return id
}

// Get returns the live instance for id.
func (r *TrackedRegistry) Get(id InstanceID) (*TrackedInstance, bool) {
	if id == InvalidInstance {
		return nil, false
	}
	inst, ok := r.instances[id]
	return inst, ok
}

// Remove unregisters id and returns the instance it held.
func (r *TrackedRegistry) Remove(id InstanceID) (*TrackedInstance, bool) {
	inst, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	delete(r.instances, id)
	return inst, true
}

// IDs returns the live ids in ascending order.
func (r *TrackedRegistry) IDs() []InstanceID {
	ids := make([]InstanceID, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of live instances.
func (r *TrackedRegistry) Len() int {
	return len(r.instances)
}

// release tears an instance down in an order that leaves nothing audible
// even if the backend ignores one of the steps.
func release(inst *TrackedInstance) {
	if inst == nil || inst.Channel == nil {
		return
	}
	inst.Channel.Stop()
	inst.Channel.SetVolume(0)
	inst.Channel.SetSound(nil)
	inst.Channel.Destroy()
}
