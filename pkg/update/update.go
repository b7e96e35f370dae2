// Package update defines the partial-update instructions accepted by the
// per-record update endpoint and the merge step that folds multiple
// instructions of the same kind into the single wire body the store expects.
package update

// Op is one update instruction. Instructions are created through the
// constructors below (or through schema.Field helpers) and are transient:
// they exist only for the request that carries them.
type Op interface {
	apply(*Operations)
}

// Operations is the merged instruction set sent to the store, and also the
// shape the store confirms back. It marshals to an object with exactly the
// five wire keys, empty collections included.
type Operations struct {
	Set       map[string]any     `json:"set"`
	Increment map[string]float64 `json:"increment"`
	Append    map[string][]any   `json:"append"`
	Prepend   map[string][]any   `json:"prepend"`
	Delete    []string           `json:"delete"`
}

// Merge folds the supplied instructions into one Operations value. Mapping
// payloads union (later entries win on path collisions), list payloads
// concatenate in submission order.
func Merge(ops ...Op) Operations {
	merged := Operations{
		Set:       map[string]any{},
		Increment: map[string]float64{},
		Append:    map[string][]any{},
		Prepend:   map[string][]any{},
		Delete:    []string{},
	}
	for _, op := range ops {
		if op != nil {
			op.apply(&merged)
		}
	}
	return merged
}

// Empty reports whether the merged set carries no instructions.
func (o Operations) Empty() bool {
	return len(o.Set) == 0 && len(o.Increment) == 0 && len(o.Append) == 0 &&
		len(o.Prepend) == 0 && len(o.Delete) == 0
}

type setOp struct {
	payload map[string]any
}

func (s setOp) apply(o *Operations) {
	for path, v := range s.payload {
		o.Set[path] = v
	}
}

// Set assigns the given value at each dotted path.
func Set(payload map[string]any) Op {
	return setOp{payload: payload}
}

type incrementOp struct {
	payload map[string]float64
}

func (i incrementOp) apply(o *Operations) {
	for path, delta := range i.payload {
		o.Increment[path] = delta
	}
}

// Increment adds the given numeric delta at each dotted path.
func Increment(payload map[string]float64) Op {
	return incrementOp{payload: payload}
}

type appendOp struct {
	payload map[string][]any
}

func (a appendOp) apply(o *Operations) {
	for path, values := range a.payload {
		o.Append[path] = append(o.Append[path], values...)
	}
}

// Append concatenates the given values after the list at each dotted path.
func Append(payload map[string][]any) Op {
	return appendOp{payload: payload}
}

type prependOp struct {
	payload map[string][]any
}

func (p prependOp) apply(o *Operations) {
	for path, values := range p.payload {
		o.Prepend[path] = append(o.Prepend[path], values...)
	}
}

// Prepend concatenates the given values before the list at each dotted path.
func Prepend(payload map[string][]any) Op {
	return prependOp{payload: payload}
}

type deleteOp struct {
	paths []string
}

func (d deleteOp) apply(o *Operations) {
	o.Delete = append(o.Delete, d.paths...)
}

// Delete removes the leaf key at each dotted path.
func Delete(paths ...string) Op {
	return deleteOp{paths: paths}
}
