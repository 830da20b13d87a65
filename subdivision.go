// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

// SubdivisionAction is one of the five outcomes the subdivision policy
// can produce (§4.3).
type SubdivisionAction uint8

const (
	// InsertInParent leaves entities registered at the current node; no
	// structural change.
	InsertInParent SubdivisionAction = iota
	// CreateSingleChild moves entities down into exactly one child cell.
	CreateSingleChild
	// SplitToChildren redistributes entities across several child cells.
	SplitToChildren
	// ForceSubdivision overrides the single-child/spanning tests below:
	// the node is grossly overloaded and must split regardless of shape.
	ForceSubdivision
	// DeferSubdivision postpones the decision — bulk-mode inserts defer
	// to a later compaction pass (§4.3 rule 3).
	DeferSubdivision
)

func (a SubdivisionAction) String() string {
	switch a {
	case InsertInParent:
		return "INSERT_IN_PARENT"
	case CreateSingleChild:
		return "CREATE_SINGLE_CHILD"
	case SplitToChildren:
		return "SPLIT_TO_CHILDREN"
	case ForceSubdivision:
		return "FORCE_SUBDIVISION"
	case DeferSubdivision:
		return "DEFER_SUBDIVISION"
	default:
		return "UNKNOWN"
	}
}

// subdivisionContext is the pure input §4.3's policy function consumes:
// everything it needs to decide whether and how a node should split,
// with no access to the index itself. childrenSpanned carries the
// number of child cells the triggering entity's bounds intersect, which
// rules 5 and 6 need to tell CREATE_SINGLE_CHILD from SPLIT_TO_CHILDREN.
type subdivisionContext struct {
	entityCount      int
	fillFactor       float64
	largeEntityCount int
	level            uint8
	maxLevel         uint8
	bulkMode         bool
	hasBounds        bool
	childrenSpanned  int
}

// decision is the pure output of the subdivision policy: one of the
// five SubdivisionAction values plus the textual reason §4.3 requires.
type decision struct {
	Action SubdivisionAction
	Reason string
}

// decide applies §4.3's 7 ordered rules against a SubdivisionPreset. A
// pure function of (context, preset) -> decision, with no hidden state,
// grounded on the teacher's preference for small, pure,
// table-driven-testable helpers (bart's allot/prefix math) over
// stateful policy objects.
func decide(ctx subdivisionContext, p SubdivisionPreset) decision {
	// rule 1: never subdivide past the configured max level.
	if ctx.level >= ctx.maxLevel {
		return decision{Action: InsertInParent, Reason: "max depth reached"}
	}
	// rule 2: below the min-entities-for-split threshold, the node
	// can't usefully split yet. current-entity-count+1 accounts for the
	// entity whose insert is triggering this decision.
	if ctx.entityCount+1 < p.MaxEntitiesPerNode {
		return decision{Action: InsertInParent, Reason: "below min-entities-for-split"}
	}
	// rule 3: bulk-mode insert defers the decision to the caller's
	// explicit compaction pass (SPEC_FULL "InsertBatch").
	if ctx.bulkMode {
		return decision{Action: DeferSubdivision, Reason: "bulk mode defers subdivision"}
	}
	// rule 4: grossly overloaded nodes split regardless of shape.
	if overloadCap := float64(p.MaxEntitiesPerNode) * (1 + p.OverloadMultiplier); float64(ctx.entityCount) > overloadCap {
		return decision{Action: ForceSubdivision, Reason: "entity count exceeds overload factor"}
	}
	// rule 5: bounds supplied and fit entirely in one child cell.
	if ctx.hasBounds && ctx.childrenSpanned == 1 {
		return decision{Action: CreateSingleChild, Reason: "bounds fit in exactly one child"}
	}
	// rule 6: bounds span more than spanning-threshold of the children.
	if ctx.hasBounds && ctx.childrenSpanned > 1 {
		if frac := float64(ctx.childrenSpanned) / 8.0; frac > p.SpanningThreshold {
			return decision{Action: SplitToChildren, Reason: "bounds span most children"}
		}
	}
	// rule 7: estimated benefit of splitting. A node crowded past its
	// fill-factor threshold benefits from splitting unless most of its
	// entities are "large" (span many cells), in which case subdividing
	// would only duplicate references without shrinking the working set.
	benefit := ctx.fillFactor >= p.FillFactorThreshold && ctx.entityCount >= p.MaxEntitiesPerNode
	if p.LargeEntityFraction > 0 && ctx.entityCount > 0 {
		frac := float64(ctx.largeEntityCount) / float64(ctx.entityCount)
		if frac >= p.LargeEntityFraction {
			benefit = false
		}
	}
	if benefit {
		return decision{Action: CreateSingleChild, Reason: "estimated benefit positive"}
	}
	return decision{Action: InsertInParent, Reason: "estimated benefit non-positive"}
}
