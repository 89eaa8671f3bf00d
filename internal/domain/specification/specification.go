package specification

// Specification is a predicate over T that may also be expressible as a
// document-store filter. Specs that cannot be pushed down return ok=false
// from ToFilter and are evaluated in memory after retrieval.
type Specification[T any] interface {
	IsSatisfiedBy(candidate T) bool
	ToFilter() (filter map[string]interface{}, ok bool)
}

// And combines specifications; the result is pushable only if every part is.
func And[T any](specs ...Specification[T]) Specification[T] {
	return andSpecification[T](specs)
}

// Split partitions specs into those a store can evaluate and those that must
// run after retrieval.
func Split[T any](specs ...Specification[T]) (pushdown, post []Specification[T]) {
	for _, s := range specs {
		if s == nil {
			continue
		}
		if _, ok := s.ToFilter(); ok {
			pushdown = append(pushdown, s)
		} else {
			post = append(post, s)
		}
	}
	return pushdown, post
}

// SatisfiesAll reports whether candidate passes every spec.
func SatisfiesAll[T any](candidate T, specs ...Specification[T]) bool {
	for _, s := range specs {
		if s != nil && !s.IsSatisfiedBy(candidate) {
			return false
		}
	}
	return true
}

type andSpecification[T any] []Specification[T]

func (s andSpecification[T]) IsSatisfiedBy(candidate T) bool {
	return SatisfiesAll(candidate, s...)
}

func (s andSpecification[T]) ToFilter() (map[string]interface{}, bool) {
	parts := make([]interface{}, 0, len(s))
	for _, spec := range s {
		f, ok := spec.ToFilter()
		if !ok {
			return nil, false
		}
		parts = append(parts, f)
	}
	switch len(parts) {
	case 0:
		return map[string]interface{}{}, true
	case 1:
		return parts[0].(map[string]interface{}), true
	}
	return map[string]interface{}{"$and": parts}, true
}
