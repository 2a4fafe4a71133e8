package graph

import (
	"sort"
	"sync"
)

// DefaultSimilarityThreshold is the minimum token-set name similarity
// for a fuzzy merge between entities of the same type. Exact matches on
// the normalized name always merge.
const DefaultSimilarityThreshold = 0.84

// Aggregator accumulates raw provider records for one query session and
// produces deduplicated snapshots. One aggregator instance is owned by
// one session; Merge is safe for concurrent use, and the merged state is
// independent of the order results arrive in.
type Aggregator struct {
	mu        sync.Mutex
	threshold float64
	entities  map[string]Entity       // provider-scoped key -> raw entity
	rels      map[string]Relationship // provider|src|tgt|type -> raw edge
}

// NewAggregator creates an empty aggregator with the default fuzzy
// matching threshold.
func NewAggregator() *Aggregator {
	return &Aggregator{
		threshold: DefaultSimilarityThreshold,
		entities:  make(map[string]Entity),
		rels:      make(map[string]Relationship),
	}
}

// WithThreshold overrides the fuzzy similarity threshold and returns the
// aggregator for chaining. Values are clamped to (0, 1].
func (a *Aggregator) WithThreshold(t float64) *Aggregator {
	if t > 0 && t <= 1 {
		a.threshold = t
	}
	return a
}

// Merge folds one batch of validated entities and relationships into the
// aggregator. Re-merging the same raw record is a no-op: raw entities are
// keyed by provider-scoped id and edges by (provider, source, target, type),
// so retried or duplicated tool results cannot inflate the state.
func (a *Aggregator) Merge(entities []Entity, rels []Relationship) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range entities {
		if e.Validate() != nil {
			continue
		}
		a.entities[e.Key()] = e
	}

	for _, r := range rels {
		if r.Validate() != nil {
			continue
		}
		key := r.Provider + "|" + r.SourceID + "|" + r.TargetID + "|" + r.Type
		if existing, ok := a.rels[key]; !ok || r.Confidence > existing.Confidence {
			a.rels[key] = r
		}
	}
}

// EntityCount returns the number of distinct raw entities merged so far.
func (a *Aggregator) EntityCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entities)
}

// Snapshot resolves the accumulated raw records into merged entities and
// deduplicated relationships. The result is deterministic: it depends only
// on the set of merged records, not on arrival order.
func (a *Aggregator) Snapshot() *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	keys := make([]string, 0, len(a.entities))
	for k := range a.entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Union-find over raw entities. Exact normalized-name matches merge
	// first, then fuzzy matches above the threshold; the closure makes
	// merging an equivalence relation.
	parent := make([]int, len(keys))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			// Root at the smaller index to keep grouping deterministic.
			if ri > rj {
				ri, rj = rj, ri
			}
			parent[rj] = ri
		}
	}

	norms := make([]string, len(keys))
	exact := make(map[string]int) // type + normalized name -> first index
	for i, k := range keys {
		e := a.entities[k]
		norms[i] = NormalizeName(e.Name)
		exactKey := string(e.Type) + "\x00" + norms[i]
		if first, ok := exact[exactKey]; ok {
			union(first, i)
		} else {
			exact[exactKey] = i
		}
	}

	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			ei, ej := a.entities[keys[i]], a.entities[keys[j]]
			if ei.Type != ej.Type || norms[i] == norms[j] {
				continue
			}
			if NameSimilarity(norms[i], norms[j]) >= a.threshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range keys {
		root := find(i)
		groups[root] = append(groups[root], i)
	}
	roots := make([]int, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	snap := &Snapshot{}
	rawToResolved := make(map[string]string, len(keys))
	for _, root := range roots {
		members := groups[root]
		resolved := a.buildResolved(keys, norms, members)
		for _, i := range members {
			rawToResolved[keys[i]] = resolved.ID
		}
		snap.Entities = append(snap.Entities, resolved)
	}

	snap.Relationships, snap.DroppedRelationships = a.resolveRelationships(rawToResolved)
	return snap
}

// buildResolved assembles one ResolvedEntity from the member indices of a
// union-find group. Members arrive sorted because keys is sorted.
func (a *Aggregator) buildResolved(keys, norms []string, members []int) ResolvedEntity {
	constituents := make([]Entity, 0, len(members))
	constituentKeys := make([]string, 0, len(members))
	providerSet := make(map[string]bool)
	distinctNorms := make(map[string]bool)
	nameCount := make(map[string]int)

	for _, i := range members {
		e := a.entities[keys[i]]
		constituents = append(constituents, e)
		constituentKeys = append(constituentKeys, e.Key())
		providerSet[e.Provider] = true
		distinctNorms[norms[i]] = true
		nameCount[e.Name]++
	}

	resolved := ResolvedEntity{
		ID:           resolvedID(constituents[0].Type, constituentKeys),
		Type:         constituents[0].Type,
		Constituents: constituents,
		Providers:    sortedSet(providerSet),
		Attributes:   make(map[string]any),
	}

	// Canonical name: the most frequent raw spelling, ties broken
	// lexicographically so the choice is stable.
	bestName, bestCount := "", -1
	for name, count := range nameCount {
		if count > bestCount || (count == bestCount && name < bestName) {
			bestName, bestCount = name, count
		}
	}
	resolved.Name = bestName

	resolved.Confidence = groupConfidence(distinctNorms)

	// Conflicting provider values are surfaced side by side rather than
	// silently overwritten: attribute keys are provider-namespaced.
	for _, e := range constituents {
		for k, v := range e.Attributes {
			resolved.Attributes[e.Provider+"."+k] = v
		}
	}

	return resolved
}

// groupConfidence is 1.0 when every constituent shares one normalized
// name, otherwise the minimum pairwise similarity across the distinct
// normalized names in the group.
func groupConfidence(distinctNorms map[string]bool) float64 {
	if len(distinctNorms) <= 1 {
		return 1.0
	}
	names := sortedSet(distinctNorms)
	min := 1.0
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if sim := NameSimilarity(names[i], names[j]); sim < min {
				min = sim
			}
		}
	}
	return min
}

func (a *Aggregator) resolveRelationships(rawToResolved map[string]string) ([]ResolvedRelationship, int) {
	relKeys := make([]string, 0, len(a.rels))
	for k := range a.rels {
		relKeys = append(relKeys, k)
	}
	sort.Strings(relKeys)

	dedup := make(map[string]*ResolvedRelationship)
	var order []string
	dropped := 0

	for _, k := range relKeys {
		r := a.rels[k]
		src, srcOK := rawToResolved[r.Provider+"/"+r.SourceID]
		tgt, tgtOK := rawToResolved[r.Provider+"/"+r.TargetID]
		if !srcOK || !tgtOK {
			dropped++
			continue
		}

		dkey := src + "|" + tgt + "|" + r.Type
		existing, ok := dedup[dkey]
		if !ok {
			existing = &ResolvedRelationship{
				SourceID:   src,
				TargetID:   tgt,
				Type:       r.Type,
				Confidence: r.Confidence,
				Attributes: make(map[string]any),
			}
			dedup[dkey] = existing
			order = append(order, dkey)
		}
		if r.Confidence > existing.Confidence {
			existing.Confidence = r.Confidence
		}
		existing.Providers = mergeProvider(existing.Providers, r.Provider)
		for ak, av := range r.Attributes {
			existing.Attributes[r.Provider+"."+ak] = av
		}
	}

	sort.Strings(order)
	out := make([]ResolvedRelationship, 0, len(order))
	for _, dkey := range order {
		out = append(out, *dedup[dkey])
	}
	return out, dropped
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func mergeProvider(providers []string, p string) []string {
	for _, existing := range providers {
		if existing == p {
			return providers
		}
	}
	providers = append(providers, p)
	sort.Strings(providers)
	return providers
}
