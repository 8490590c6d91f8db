package retrieval

import (
	"bank-research-platform/models"

	"go.mongodb.org/mongo-driver/bson"
)

// bankScopeKind distinguishes "not specified" (search everything) from
// "specified as global" (only bank-agnostic content) and "specified as a
// bank" (exact IDRSSD match). Collapsing the first two is the classic bug
// this type exists to prevent.
type bankScopeKind int

const (
	bankScopeAny bankScopeKind = iota
	bankScopeGlobal
	bankScopeBank
)

// BankScope is the three-valued bank clause of a ChunkFilter.
type BankScope struct {
	kind   bankScopeKind
	idrssd string
}

// AnyBank matches chunks for any bank and global chunks alike.
func AnyBank() BankScope { return BankScope{kind: bankScopeAny} }

// GlobalOnly matches only chunks with no bank association.
func GlobalOnly() BankScope { return BankScope{kind: bankScopeGlobal} }

// ForBank matches only chunks tied to the given IDRSSD.
func ForBank(idrssd string) BankScope {
	return BankScope{kind: bankScopeBank, idrssd: idrssd}
}

// ChunkFilter is the candidate predicate for a vector search. Clauses are
// independent and ANDed; an omitted clause imposes no constraint.
type ChunkFilter struct {
	Bank BankScope
	// BankTypes matches chunks whose tags overlap the list, or chunks tagged
	// with the "all" sentinel.
	BankTypes []string
	Topics    []string
}

// Mongo renders the filter as a find() predicate against the
// grounding_chunks collection.
func (f ChunkFilter) Mongo() bson.M {
	query := bson.M{}

	switch f.Bank.kind {
	case bankScopeGlobal:
		// Matches both a null idrssd and an absent field.
		query["idrssd"] = nil
	case bankScopeBank:
		query["idrssd"] = f.Bank.idrssd
	}

	if len(f.BankTypes) > 0 {
		tags := make([]string, 0, len(f.BankTypes)+1)
		tags = append(tags, f.BankTypes...)
		tags = append(tags, models.BankTypeAll)
		query["bank_types"] = bson.M{"$in": tags}
	}

	if len(f.Topics) > 0 {
		query["topics"] = bson.M{"$in": f.Topics}
	}

	return query
}

// Matches reports whether a chunk satisfies the filter. It mirrors Mongo()
// exactly so in-memory stores rank the same candidate set the database would
// return.
func (f ChunkFilter) Matches(c *models.GroundingChunk) bool {
	switch f.Bank.kind {
	case bankScopeGlobal:
		if c.IDRSSD != nil {
			return false
		}
	case bankScopeBank:
		if c.IDRSSD == nil || *c.IDRSSD != f.Bank.idrssd {
			return false
		}
	}

	if len(f.BankTypes) > 0 && !overlapsOrAll(c.BankTypes, f.BankTypes) {
		return false
	}

	if len(f.Topics) > 0 && !overlaps(c.Topics, f.Topics) {
		return false
	}

	return true
}

func overlaps(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func overlapsOrAll(have, want []string) bool {
	for _, h := range have {
		if h == models.BankTypeAll {
			return true
		}
	}
	return overlaps(have, want)
}
