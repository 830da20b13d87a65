// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

// Package lucien implements a multi-entity 3-D spatial index with two
// hierarchical backends — an octree keyed by Morton (Z-order) codes and
// a tetree keyed by TM-indices — sharing one generic algorithm core the
// way bart.Table[V] shares one ART algorithm across several node
// encodings.
package lucien

import (
	"sync"

	"go.uber.org/zap"

	"github.com/lucien-spatial/lucien/internal/bitset"
)

// Index is a generic multi-entity spatial index. It is instantiated
// twice in this package (Octree, Tetree) against two different keyOps
// implementations, the way bart's tree algorithm is written once and
// instantiated against several node encodings via NodeReadWriter[V].
//
// Concurrency model: single-writer/many-reader via sync.RWMutex (§5).
// version increments once per successful mutating call, inside the
// write critical section, and is the cache-invalidation signal the k-NN
// cache checks against.
type Index[K SpatialKey, V any] struct {
	mu      sync.RWMutex
	ops     keyOps[K]
	cfg     Config
	store   *store[K, V]
	nodes   *nodeMap[K]
	cache   *knnCache
	ghosts  *GhostLayer[K, V]
	version uint64
	log     *zap.Logger
}

func newIndex[K SpatialKey, V any](ops keyOps[K], cfg Config) *Index[K, V] {
	return &Index[K, V]{
		ops:    ops,
		cfg:    cfg,
		store:  newStore[K, V](),
		nodes:  newNodeMap[K](),
		cache:  newKNNCache(cfg.KNNCacheSize),
		ghosts: newGhostLayer[K, V](ops),
		log:    cfg.Logger,
	}
}

// Close releases the index's k-NN cache resources deterministically
// (SPEC_FULL "Index.Close/cache invalidation hooks").
func (ix *Index[K, V]) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.cache.purge()
	return nil
}

// Insert adds a new point entity at the given level, deriving its key
// by locating (x,y,z) at that level, and returns its allocated ID.
func (ix *Index[K, V]) Insert(x, y, z uint32, level uint8, value V) (ID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.insertLocked(x, y, z, level, value, nil, false)
}

// InsertWithBounds adds an entity that spans every cell its AABB
// overlaps at the given level, recorded as its span-set (§4.2).
func (ix *Index[K, V]) InsertWithBounds(pos Point3, bounds AABB, level uint8, value V) (ID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.insertLocked(pos.X, pos.Y, pos.Z, level, value, &bounds, false)
}

// InsertBatch inserts many point entities under the bulk-mode
// subdivision branch (§4.3 rule 3, DEFER_SUBDIVISION), then performs one
// compaction pass — SPEC_FULL's bulk insert entry point.
func (ix *Index[K, V]) InsertBatch(points []Point3, level uint8, values []V) ([]ID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ids := make([]ID, len(points))
	for i, p := range points {
		var v V
		if i < len(values) {
			v = values[i]
		}
		id, err := ix.insertLocked(p.X, p.Y, p.Z, level, v, nil, true)
		if err != nil {
			return ids[:i], err
		}
		ids[i] = id
	}
	ix.compactLocked()
	ix.version++
	return ids, nil
}

func (ix *Index[K, V]) insertLocked(x, y, z uint32, level uint8, value V, bounds *AABB, bulk bool) (ID, error) {
	k, err := ix.ops.encode(x, y, z, level)
	if err != nil {
		return 0, newErr(CodecError, "insert", err)
	}
	id := ix.store.allocateID()
	rec := ix.store.put(id, value, Point3{x, y, z}, bounds)

	span := ix.spanKeysLocked(k, bounds)
	rec.setSpan(span)
	for _, sk := range span {
		ix.nodes.addEntity(ix.ops, sk, id)
	}
	if !bulk {
		ix.version++
		ix.maybeSubdivideLocked(k, Point3{x, y, z}, bounds)
	}
	return id, nil
}

// touch bit positions within the Set8 crossing-mask computed by
// spanKeysLocked: one bit per (axis, direction) the AABB crosses out of
// its own cell.
const (
	touchNegX uint8 = iota
	touchPosX
	touchNegY
	touchPosY
	touchNegZ
	touchPosZ
)

// spanKeysLocked returns the set of node keys an entity at k (with
// optional bounds) should be registered under. Point entities span
// exactly one key; bounded entities additionally span every sibling
// cell at k's level that their AABB overlaps.
//
// Which sibling cells those are is decided in two steps: first a
// crossing-mask (internal/bitset.Set8, domain [0,8) — only 6 of the 8
// bits are meaningful here) records, per axis, whether the AABB reaches
// past the cell's near or far face. Test then drives the buildout of
// each axis's candidate offset set ({0}, plus -1 and/or +1 per the set
// bits), and only the resulting Cartesian product — never the full
// 26-neighbor stencil — gets the exact-intersection check.
func (ix *Index[K, V]) spanKeysLocked(k K, bounds *AABB) []K {
	if bounds == nil {
		return []K{k}
	}
	size := ix.ops.cellSize(k)
	ox, oy, oz := ix.ops.origin(k)

	var touch bitset.Set8
	if bounds.Min.X < ox {
		touch = touch.Set(touchNegX)
	}
	if bounds.Max.X > ox+size {
		touch = touch.Set(touchPosX)
	}
	if bounds.Min.Y < oy {
		touch = touch.Set(touchNegY)
	}
	if bounds.Max.Y > oy+size {
		touch = touch.Set(touchPosY)
	}
	if bounds.Min.Z < oz {
		touch = touch.Set(touchNegZ)
	}
	if bounds.Max.Z > oz+size {
		touch = touch.Set(touchPosZ)
	}
	if touch.IsEmpty() {
		return []K{k}
	}

	offsets := func(neg, pos uint8) []int64 {
		o := []int64{0}
		if touch.Test(neg) {
			o = append(o, -1)
		}
		if touch.Test(pos) {
			o = append(o, 1)
		}
		return o
	}
	xs, ys, zs := offsets(touchNegX, touchPosX), offsets(touchNegY, touchPosY), offsets(touchNegZ, touchPosZ)

	out := []K{k}
	for _, dz := range zs {
		for _, dy := range ys {
			for _, dx := range xs {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				nx, ny, nz := int64(ox)+dx*int64(size), int64(oy)+dy*int64(size), int64(oz)+dz*int64(size)
				if nx < 0 || ny < 0 || nz < 0 {
					continue
				}
				npx, npy, npz := uint32(nx), uint32(ny), uint32(nz)
				nb := AABB{Min: Point3{npx, npy, npz}, Max: Point3{npx + size, npy + size, npz + size}}
				if !bounds.Intersects(nb) {
					continue
				}
				nk, err := ix.ops.encode(npx, npy, npz, k.Level())
				if err != nil {
					continue
				}
				out = append(out, nk)
			}
		}
	}
	return out
}

// maybeSubdivideLocked consults the subdivision policy (§4.3) for the
// node the just-inserted entity landed in, and on a split/single-child
// /force decision rewrites the span-sets of the entities being
// redistributed into k's children (§4.4).
func (ix *Index[K, V]) maybeSubdivideLocked(k K, pos Point3, bounds *AABB) {
	rec, ok := ix.nodes.get(k)
	if !ok {
		return
	}
	childrenSpanned := ix.redistributeChildrenLocked(k, pos, bounds)
	ctx := subdivisionContext{
		// the just-inserted entity is already in rec.ids; decide adds it back
		entityCount:      len(rec.ids) - 1,
		fillFactor:       float64(len(rec.ids)) / float64(ix.cfg.Preset.MaxEntitiesPerNode),
		largeEntityCount: ix.countLargeLocked(rec),
		level:            k.Level(),
		maxLevel:         ix.cfg.MaxLevel,
		hasBounds:        bounds != nil,
		childrenSpanned:  len(childrenSpanned),
	}
	d := decide(ctx, ix.cfg.Preset)
	switch d.Action {
	case CreateSingleChild, SplitToChildren, ForceSubdivision:
		ix.redistributeLocked(k, rec)
		ix.log.Debug("node subdivided",
			zap.Uint8("level", k.Level()),
			zap.String("action", d.Action.String()),
			zap.String("reason", d.Reason))
	case DeferSubdivision:
		ix.log.Debug("subdivision deferred", zap.Uint8("level", k.Level()), zap.String("reason", d.Reason))
	case InsertInParent:
	}
}

// compactLocked resolves every bulk-mode deferral from the preceding
// InsertBatch in one pass: nodes that now cross their threshold are
// subdivided for real via redistributeLocked, not merely logged.
func (ix *Index[K, V]) compactLocked() {
	var toSplit []K
	ix.nodes.ascendAll(func(r *nodeRecord[K]) bool {
		ctx := subdivisionContext{
			entityCount:      len(r.ids),
			fillFactor:       float64(len(r.ids)) / float64(ix.cfg.Preset.MaxEntitiesPerNode),
			largeEntityCount: ix.countLargeLocked(r),
			level:            r.level,
			maxLevel:         ix.cfg.MaxLevel,
		}
		if d := decide(ctx, ix.cfg.Preset); d.Action != InsertInParent && d.Action != DeferSubdivision {
			toSplit = append(toSplit, r.key)
			ix.log.Debug("bulk compaction flagged node",
				zap.Uint8("level", r.level),
				zap.String("action", d.Action.String()),
				zap.String("reason", d.Reason))
		}
		return true
	})
	for _, k := range toSplit {
		if rec, ok := ix.nodes.get(k); ok {
			ix.redistributeLocked(k, rec)
		}
	}
}

// countLargeLocked counts entities registered at rec that carry
// explicit bounds — §4.3's notion of a "large" entity, one that can
// span many cells rather than sitting at a single point.
func (ix *Index[K, V]) countLargeLocked(rec *nodeRecord[K]) int {
	n := 0
	for _, id := range rec.ids {
		if erec, ok := ix.store.get(id); ok && erec.bounds != nil {
			n++
		}
	}
	return n
}

// redistributeChildrenLocked returns the child keys of k (among its up
// to 8 octants/Bey children) whose cube the entity at pos/bounds
// overlaps — the same cube-intersection test spanKeysLocked uses for
// same-level siblings, applied one level deeper.
func (ix *Index[K, V]) redistributeChildrenLocked(k K, pos Point3, bounds *AABB) []K {
	eff := AABB{Min: pos, Max: Point3{pos.X + 1, pos.Y + 1, pos.Z + 1}}
	if bounds != nil {
		eff = *bounds
	}
	var out []K
	for i := uint8(0); i < 8; i++ {
		c, err := ix.ops.child(k, i)
		if err != nil {
			continue
		}
		ox, oy, oz := ix.ops.origin(c)
		size := ix.ops.cellSize(c)
		cb := AABB{Min: Point3{ox, oy, oz}, Max: Point3{ox + size, oy + size, oz + size}}
		if eff.Intersects(cb) {
			out = append(out, c)
		}
	}
	return out
}

// redistributeLocked pushes every entity registered at k down into the
// children of k that their own position/bounds overlap, rewriting each
// entity's span-set to drop k and add the child keys it now occupies —
// the span-set rewrite §4.4 requires on a split.
func (ix *Index[K, V]) redistributeLocked(k K, rec *nodeRecord[K]) {
	ids := append([]ID(nil), rec.ids...)
	for _, id := range ids {
		erec, ok := ix.store.get(id)
		if !ok {
			continue
		}
		children := ix.redistributeChildrenLocked(k, erec.pos, erec.bounds)
		if len(children) == 0 {
			continue
		}
		ix.nodes.removeEntity(k, id)
		newSpan := make([]K, 0, len(erec.span())+len(children))
		for _, sk := range erec.span() {
			if ix.ops.equal(sk, k) {
				continue
			}
			newSpan = append(newSpan, sk)
		}
		for _, c := range children {
			ix.nodes.addEntity(ix.ops, c, id)
			newSpan = append(newSpan, c)
		}
		erec.setSpan(newSpan)
	}
}

// Lookup returns the value stored for id.
func (ix *Index[K, V]) Lookup(id ID) (V, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.store.get(id)
	if !ok {
		var zero V
		return zero, newErr(IdUnknown, "lookup", nil)
	}
	return rec.value, nil
}

// LookupAt returns every entity ID registered at the exact cell
// containing pos at level — §4.4's positional lookup(pos, level) → [id],
// with no distance filtering. It returns an empty, non-error result for
// a cell the index has never materialized.
func (ix *Index[K, V]) LookupAt(pos Point3, level uint8) ([]ID, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	k, err := ix.ops.encode(pos.X, pos.Y, pos.Z, level)
	if err != nil {
		return nil, newErr(CodecError, "lookup_at", err)
	}
	rec, ok := ix.nodes.get(k)
	if !ok {
		return nil, nil
	}
	return append([]ID(nil), rec.ids...), nil
}

// Position returns the anchor position recorded for id.
func (ix *Index[K, V]) Position(id ID) (Point3, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.store.get(id)
	if !ok {
		return Point3{}, newErr(IdUnknown, "position", nil)
	}
	return rec.pos, nil
}

// Bounds returns the bounding box recorded for id, if it has one.
func (ix *Index[K, V]) Bounds(id ID) (AABB, bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.store.get(id)
	if !ok {
		return AABB{}, false, newErr(IdUnknown, "bounds", nil)
	}
	if rec.bounds == nil {
		return AABB{}, false, nil
	}
	return *rec.bounds, true, nil
}

// SpanCount returns the number of node keys id is registered under.
func (ix *Index[K, V]) SpanCount(id ID) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.store.get(id)
	if !ok {
		return 0, newErr(IdUnknown, "span_count", nil)
	}
	return rec.spanCount, nil
}

// Update moves id to a new position, re-deriving its span-set.
func (ix *Index[K, V]) Update(id ID, x, y, z uint32, level uint8) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec, ok := ix.store.get(id)
	if !ok {
		return newErr(IdUnknown, "update", nil)
	}
	for _, old := range rec.span() {
		ix.nodes.removeEntity(old, id)
	}
	k, err := ix.ops.encode(x, y, z, level)
	if err != nil {
		return newErr(CodecError, "update", err)
	}
	span := ix.spanKeysLocked(k, rec.bounds)
	rec.pos = Point3{x, y, z}
	rec.setSpan(span)
	for _, sk := range span {
		ix.nodes.addEntity(ix.ops, sk, id)
	}
	ix.version++
	ix.cache.invalidate()
	return nil
}

// Remove deletes id from the index. Returns false if id was unknown.
func (ix *Index[K, V]) Remove(id ID) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec, ok := ix.store.remove(id)
	if !ok {
		return false
	}
	for _, k := range rec.span() {
		ix.nodes.removeEntity(k, id)
	}
	ix.version++
	ix.cache.invalidate()
	return true
}

// Contains reports whether id is currently stored.
func (ix *Index[K, V]) Contains(id ID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.store.get(id)
	return ok
}

// Version returns the monotonically increasing mutation counter.
func (ix *Index[K, V]) Version() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.version
}

// Enclosing returns the materialized node key that contains (x,y,z) at
// the deepest level currently present in the index, by walking up from
// the finest configured level until a materialized ancestor is found.
func (ix *Index[K, V]) Enclosing(x, y, z uint32) (K, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	level := ix.cfg.MaxLevel
	k, err := ix.ops.encode(x, y, z, level)
	if err != nil {
		var zero K
		return zero, false
	}
	for l := int(level); l >= 0; l-- {
		ak := ix.ops.atLevel(k, uint8(l))
		if _, ok := ix.nodes.get(ak); ok {
			return ak, true
		}
	}
	var zero K
	return zero, false
}

// EnclosingVolume returns the materialized node key that contains the
// entire bounds AABB at the deepest level currently present in the
// index (§4.4/§6 enclosing(volume: Aabb)), found by walking up from the
// finest configured level, anchored at bounds.Min, until a materialized
// ancestor whose cube fully contains bounds is found.
func (ix *Index[K, V]) EnclosingVolume(bounds AABB) (K, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	level := ix.cfg.MaxLevel
	k, err := ix.ops.encode(bounds.Min.X, bounds.Min.Y, bounds.Min.Z, level)
	if err != nil {
		var zero K
		return zero, false
	}
	for l := int(level); l >= 0; l-- {
		ak := ix.ops.atLevel(k, uint8(l))
		if _, ok := ix.nodes.get(ak); !ok {
			continue
		}
		ox, oy, oz := ix.ops.origin(ak)
		size := ix.ops.cellSize(ak)
		cell := AABB{Min: Point3{ox, oy, oz}, Max: Point3{ox + size, oy + size, oz + size}}
		if cell.Min.X <= bounds.Min.X && cell.Min.Y <= bounds.Min.Y && cell.Min.Z <= bounds.Min.Z &&
			cell.Max.X >= bounds.Max.X && cell.Max.Y >= bounds.Max.Y && cell.Max.Z >= bounds.Max.Z {
			return ak, true
		}
	}
	var zero K
	return zero, false
}

// Stats is a snapshot of the index's internal counters (§6 stats()).
type Stats struct {
	NodeCount   int
	EntityCount int
	Version     uint64
	GhostCount  int
	RemoteCount int
}

// StatsSnapshot returns the current Stats.
func (ix *Index[K, V]) StatsSnapshot() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Stats{
		NodeCount:   ix.nodes.len(),
		EntityCount: ix.store.len(),
		Version:     ix.version,
		GhostCount:  ix.ghosts.totalGhosts(),
		RemoteCount: ix.ghosts.totalRemotes(),
	}
}

// Ghosts returns the index's ghost layer (§4.8).
func (ix *Index[K, V]) Ghosts() *GhostLayer[K, V] { return ix.ghosts }
