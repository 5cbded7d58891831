package feed

import (
	"sort"
)

// Mixer interleaves per-category ranked lists into the final feed order,
// applying budget ratios and diversity/fatigue constraints while emitting.
type Mixer struct {
	ratios     Ratios
	discover   DiscoverRatios
	thresholds Thresholds
}

// NewMixer creates a Mixer. Ratio tables must already be validated via
// Weights.Validate.
func NewMixer(w *Weights) *Mixer {
	return &Mixer{
		ratios:     w.Ratios,
		discover:   w.Discover,
		thresholds: w.Thresholds,
	}
}

// sortItems orders a category list by score descending, breaking ties by
// content id ascending so output is deterministic under equal scores.
func sortItems(items []ScoredItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Content.ContentID < items[j].Content.ContentID
	})
}

// budget truncates a category list to int(fraction × targetSize) items.
// Integer truncation can under-fill the feed when categories are sparse;
// that is accepted behavior; the mixer never pads with placeholders.
func budget(items []ScoredItem, fraction float64, targetSize int) []ScoredItem {
	n := int(fraction * float64(targetSize))
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// HomeCategories groups the per-category ranked lists feeding the home
// feed mixer.
type HomeCategories struct {
	Friends   []ScoredItem
	Following []ScoredItem
	Groups    []ScoredItem
	Pages     []ScoredItem
	Interest  []ScoredItem
	Discovery []ScoredItem
}

// MixHome produces the final home feed order. Each category list is sorted,
// truncated to its ratio budget, and interleaved with a fixed repeating
// pattern: 3 friends, 1 following-or-page, 2 friends, 1 discovery,
// 1 friend, 1 interest, 1 group. A category that runs out is skipped in
// its slot without stalling the others. Fatigue filtering is applied while
// emitting; dropped candidates are not re-inserted later.
func (m *Mixer) MixHome(cats HomeCategories, targetSize int) []ScoredItem {
	sortItems(cats.Friends)
	sortItems(cats.Following)
	sortItems(cats.Groups)
	sortItems(cats.Pages)
	sortItems(cats.Interest)
	sortItems(cats.Discovery)

	friends := budget(cats.Friends, m.ratios.Friends, targetSize)
	following := budget(cats.Following, m.ratios.Following, targetSize)
	groups := budget(cats.Groups, m.ratios.Groups, targetSize)
	pages := budget(cats.Pages, m.ratios.Pages, targetSize)
	interest := budget(cats.Interest, m.ratios.Interest, targetSize)
	discovery := budget(cats.Discovery, m.ratios.Discovery, targetSize)

	emitter := newFatigueEmitter(m.thresholds)

	var fi, pi, gi, pgi, ii, di int
	for fi < len(friends) || pi < len(following) || gi < len(groups) ||
		pgi < len(pages) || ii < len(interest) || di < len(discovery) {

		// 3 friends
		for n := 0; n < 3 && fi < len(friends); n++ {
			emitter.emit(friends[fi])
			fi++
		}

		// 1 following, falling back to a page item
		if pi < len(following) {
			emitter.emit(following[pi])
			pi++
		} else if pgi < len(pages) {
			emitter.emit(pages[pgi])
			pgi++
		}

		// 2 friends
		for n := 0; n < 2 && fi < len(friends); n++ {
			emitter.emit(friends[fi])
			fi++
		}

		// 1 discovery
		if di < len(discovery) {
			emitter.emit(discovery[di])
			di++
		}

		// 1 friend
		if fi < len(friends) {
			emitter.emit(friends[fi])
			fi++
		}

		// 1 interest
		if ii < len(interest) {
			emitter.emit(interest[ii])
			ii++
		}

		// 1 group
		if gi < len(groups) {
			emitter.emit(groups[gi])
			gi++
		}
	}

	return emitter.result
}

// DiscoverCategories groups the per-category lists feeding the discover
// feed mixer.
type DiscoverCategories struct {
	Known       []ScoredItem
	Exploration []ScoredItem
	Surprise    []ScoredItem
}

// MixDiscover interleaves the discover feed: blocks of 3 known-interest
// items followed by 1 exploration item, with a surprise item roughly every
// 10 emitted positions.
func (m *Mixer) MixDiscover(cats DiscoverCategories, targetSize int) []ScoredItem {
	sortItems(cats.Known)
	sortItems(cats.Exploration)
	sortItems(cats.Surprise)

	known := budget(cats.Known, m.discover.Known, targetSize)
	explore := budget(cats.Exploration, m.discover.Exploration, targetSize)
	surprise := budget(cats.Surprise, m.discover.Surprise, targetSize)

	emitter := newFatigueEmitter(m.thresholds)

	var ki, ei, si int
	for ki < len(known) || ei < len(explore) || si < len(surprise) {
		for n := 0; n < 3 && ki < len(known); n++ {
			emitter.emit(known[ki])
			ki++
		}
		if ei < len(explore) {
			emitter.emit(explore[ei])
			ei++
		}
		if si < len(surprise) {
			// A surprise item lands roughly every tenth slot. Once the
			// other categories are drained the gate is lifted so the
			// remaining surprise items flush and the loop terminates.
			drained := ki >= len(known) && ei >= len(explore)
			if drained || (len(emitter.result) > 0 && len(emitter.result)%10 == 0) {
				emitter.emit(surprise[si])
				si++
			}
		}
	}

	return emitter.result
}

// MixRanked applies fatigue filtering to an already fully ranked list
// (used by feed variants that score globally rather than per category).
func (m *Mixer) MixRanked(items []ScoredItem) []ScoredItem {
	sortItems(items)
	emitter := newFatigueEmitter(m.thresholds)
	for _, item := range items {
		emitter.emit(item)
	}
	return emitter.result
}

// fatigueEmitter accumulates output while enforcing creator and topic
// fatigue. A creator already occupying CreatorFatigueLimit emitted slots is
// dropped; so is a candidate whose topic set overlaps the topics of the
// last TopicWindow emitted items in TopicOverlapLimit or more tags.
type fatigueEmitter struct {
	thresholds   Thresholds
	result       []ScoredItem
	creatorCount map[string]int
}

func newFatigueEmitter(t Thresholds) *fatigueEmitter {
	return &fatigueEmitter{
		thresholds:   t,
		creatorCount: make(map[string]int),
	}
}

// emit appends the item unless a fatigue rule rejects it. Rejected items
// are gone for good. The mixer does not retry them in later slots.
func (e *fatigueEmitter) emit(item ScoredItem) {
	c := item.Content

	if e.creatorCount[c.CreatorID] >= e.thresholds.CreatorFatigueLimit {
		return
	}

	if len(c.Topics) > 0 && len(e.result) > 0 {
		window := e.result
		if len(window) > e.thresholds.TopicWindow {
			window = window[len(window)-e.thresholds.TopicWindow:]
		}
		recent := make(map[string]struct{})
		for _, prev := range window {
			for _, topic := range prev.Content.Topics {
				recent[topic] = struct{}{}
			}
		}
		overlap := 0
		for _, topic := range c.Topics {
			if _, ok := recent[topic]; ok {
				overlap++
			}
		}
		if overlap >= e.thresholds.TopicOverlapLimit {
			return
		}
	}

	e.result = append(e.result, item)
	e.creatorCount[c.CreatorID]++
}
