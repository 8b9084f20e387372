package elm

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// GroupByKey groups entities by a key function. Useful for one-to-many
// relationships where multiple entities share the same foreign key.
//
//	posts, _ := elm.Select[Post](conn).From().Where(query.F("Blog").In(ids...)).List(ctx)
//	grouped := elm.GroupByKey(posts, func(p *Post) int { return p.Blog.Id })
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderByKeys reorders entities to match the order of the requested keys.
// Missing entities are zero values and reported by a false in found.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) (result []V, found []bool) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result = make([]V, len(keys))
	found = make([]bool, len(keys))
	for i, key := range keys {
		result[i], found[i] = lookup[key]
	}
	return result, found
}

// distinct returns the keys in first-seen order without duplicates.
func distinct[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
