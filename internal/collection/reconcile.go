package collection

import "github.com/asakaida/contentkit/internal/entities"

// Reconcile matches an incoming set of relations against the persisted set.
//
// For every incoming record the persisted record with the same identity is kept
// (with its storage ID) and takes the incoming sortorder; unmatched incoming
// records are kept as new. Every persisted record not kept this way is returned
// as deleted, including repeated rows of a kept identity. When incoming repeats
// an identity the record is kept once at its first position and the last
// sortorder wins. Nil records are ignored on both sides.
//
// Neither input is modified; kept records are copies.
func Reconcile(old, incoming []*entities.Relation) (kept, deleted []*entities.Relation) {
	index := make(map[entities.RelationIdentity]int, len(incoming))
	matched := make(map[*entities.Relation]bool, len(old))

	for _, in := range incoming {
		if in == nil {
			continue
		}
		identity := in.Identity()
		if pos, seen := index[identity]; seen {
			kept[pos].Sortorder = in.Sortorder
			continue
		}

		var master *entities.Relation
		if original := find(old, in); original != nil {
			matched[original] = true
			master = original.Clone()
		} else {
			master = in.Clone()
		}
		master.Sortorder = in.Sortorder

		index[identity] = len(kept)
		kept = append(kept, master)
	}

	for _, o := range old {
		if o != nil && !matched[o] {
			deleted = append(deleted, o)
		}
	}

	return kept, deleted
}
