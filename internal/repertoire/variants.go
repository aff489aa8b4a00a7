// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package repertoire extracts variant move-prefixes from the user's
// repertoires and caches them for the duration of one import batch.
//
// Repertoires are owned by an external collaborator and are read-only here.
package repertoire

import (
	"strings"

	"github.com/tomtom215/rookery/internal/models"
)

// DefaultVariantDepth is the ply depth variants are truncated to.
const DefaultVariantDepth = 12

// MoveNode is one node of a repertoire move tree. The root node carries no
// move. VariantName labels the line starting at this node.
type MoveNode struct {
	Move        string      `json:"move,omitempty"`
	VariantName string      `json:"variant_name,omitempty"`
	Children    []*MoveNode `json:"children,omitempty"`
}

// Repertoire is the collaborator-owned study document.
type Repertoire struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Name        string              `json:"name"`
	Orientation *models.Orientation `json:"orientation,omitempty"`
	Root        *MoveNode           `json:"root"`
}

// Variant is one root-to-leaf path of a repertoire.
type Variant struct {
	FullName string
	Name     string
	MovesSAN []string
}

// Metadata is the per-repertoire view used by the mapper.
type Metadata struct {
	ID          string
	Name        string
	Orientation *models.Orientation
	Variants    []Variant
}

// BuildMetadata extracts the variants of rep.
func BuildMetadata(rep *Repertoire, maxPlies int) Metadata {
	return Metadata{
		ID:          rep.ID,
		Name:        rep.Name,
		Orientation: rep.Orientation,
		Variants:    ExtractVariants(rep, maxPlies),
	}
}

// ExtractVariants walks the move tree and returns every distinct
// root-to-leaf path, truncated to maxPlies and de-duplicated by
// (FullName, MovesSAN). Paths are returned in depth-first order.
//
// Name is the deepest variant label on the path; FullName joins all labels
// along the path. Unlabeled paths are named after the repertoire.
func ExtractVariants(rep *Repertoire, maxPlies int) []Variant {
	if rep == nil || rep.Root == nil {
		return nil
	}
	if maxPlies <= 0 {
		maxPlies = DefaultVariantDepth
	}

	var (
		out  []Variant
		seen = make(map[string]bool)
	)

	var walk func(node *MoveNode, moves, names []string)
	walk = func(node *MoveNode, moves, names []string) {
		if node.Move != "" {
			moves = append(moves, node.Move)
		}
		if label := strings.TrimSpace(node.VariantName); label != "" && (len(names) == 0 || names[len(names)-1] != label) {
			names = append(names, label)
		}

		if len(node.Children) == 0 {
			if len(moves) == 0 {
				return
			}
			v := newVariant(rep.Name, moves, names, maxPlies)
			key := v.FullName + "\x00" + strings.Join(v.MovesSAN, " ")
			if !seen[key] {
				seen[key] = true
				out = append(out, v)
			}
			return
		}

		for _, child := range node.Children {
			if child == nil {
				continue
			}
			// Fresh backing arrays so sibling paths never share state.
			walk(child, append([]string(nil), moves...), append([]string(nil), names...))
		}
	}
	walk(rep.Root, nil, nil)

	return out
}

func newVariant(repName string, moves, names []string, maxPlies int) Variant {
	if len(moves) > maxPlies {
		moves = moves[:maxPlies]
	}
	v := Variant{MovesSAN: append([]string(nil), moves...)}
	if len(names) == 0 {
		v.Name = repName
		v.FullName = repName
		return v
	}
	v.Name = names[len(names)-1]
	v.FullName = strings.Join(names, ": ")
	return v
}

// VariantMatch is the best-scoring variant for a game line.
type VariantMatch struct {
	Variant Variant
	Matched int
	Ratio   float64
}

// PrefixRatio walks both sequences from ply 0, stops at the first mismatch,
// and returns matched plies divided by the shorter length.
func PrefixRatio(a, b []string) (matched int, ratio float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0, 0
	}
	for matched < n && a[matched] == b[matched] {
		matched++
	}
	return matched, float64(matched) / float64(n)
}

// BestVariantMatch scores every variant by longest common prefix ratio and
// returns the highest. The first variant wins ties. ok is false when no
// variant shares even the first move.
func BestVariantMatch(variants []Variant, line []string) (best VariantMatch, ok bool) {
	for _, v := range variants {
		matched, ratio := PrefixRatio(v.MovesSAN, line)
		if matched == 0 {
			continue
		}
		if !ok || ratio > best.Ratio {
			best = VariantMatch{Variant: v, Matched: matched, Ratio: ratio}
			ok = true
		}
	}
	return best, ok
}
