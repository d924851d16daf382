// Package scheduler generates deterministic ScheduleBlocks for one channel
// over one block window, per spec.md §4.5 — the hardest subsystem in the
// service.
package scheduler

import (
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/metrics"
	"github.com/cablecast/cablecast/internal/model"
	"github.com/cablecast/cablecast/internal/rng"
)

const (
	movieRunPoolSize  = 20
	tailFillMaxTries  = 100
	relaxAtAttempt    = 25
	maxFailedAttempts = 50
	tailGapThreshold  = 5 * time.Minute
	shortTailCutoff   = 30 * time.Minute
)

// Input bundles everything GenerateBlock needs for one block.
type Input struct {
	Channel    model.Channel
	BlockStart time.Time
	Alignment  clock.Alignment
	// Items is the already-resolved (LibraryIndex.Resolve) item set for the
	// channel. Callers must drop items with a missing/"Not Rated" rating
	// themselves when the global rating filter is active, per spec.md §4.5.
	Items    []model.LibraryItem
	Cooldown map[string]struct{}
	Tracker  *GlobalTracker
}

// gen holds the mutable state threaded through one block's main loop.
type gen struct {
	rngSrc *rng.Source

	blockStart, blockEnd time.Time
	cursor               time.Time

	standalone []model.LibraryItem
	series     map[string][]model.LibraryItem
	seriesIDs  []string // sorted once, so map-keyed iteration never varies the deterministic output
	seriesIdx  map[string]int
	isMovieOnly bool

	cooldown map[string]struct{}
	tracker  *GlobalTracker

	lastItemID string
	lastBucket string
	usedInBlock map[string]bool
	seriesUsedCount map[string]int

	failedAttempts int
	programs       []model.ScheduleProgram
	wentRelaxed    bool
}

// GenerateBlock runs the full deterministic block-generation algorithm and
// returns the finished ScheduleBlock. Never errors: an empty or malformed
// library yields an empty (or interstitial-only) block, per spec.md §7.
func GenerateBlock(in Input) model.ScheduleBlock {
	blockStart := in.BlockStart
	blockEnd := in.Alignment.BlockEnd(blockStart)
	seed := rng.Seed(in.Channel.Number, blockStart.UTC().Format(time.RFC3339Nano))

	standalone, series, isMovieOnly := classify(in.Items)

	if len(standalone) == 0 && len(series) == 0 {
		channelLabel := strconv.Itoa(in.Channel.Number)
		metrics.BlocksGeneratedTotal.WithLabelValues(channelLabel).Inc()
		return model.ScheduleBlock{
			ChannelID:  in.Channel.Number,
			BlockStart: blockStart,
			BlockEnd:   blockEnd,
			Seed:       hexSeed(seed),
			CreatedAt:  blockStart,
		}
	}

	g := &gen{
		rngSrc:          rng.NewSource(seed),
		blockStart:      blockStart,
		blockEnd:        blockEnd,
		cursor:          blockStart,
		standalone:      standalone,
		series:          series,
		seriesIdx:       map[string]int{},
		isMovieOnly:     isMovieOnly,
		cooldown:        in.Cooldown,
		tracker:         in.Tracker,
		usedInBlock:     map[string]bool{},
		seriesUsedCount: map[string]int{},
	}
	if g.cooldown == nil {
		g.cooldown = map[string]struct{}{}
	}
	for sid := range g.series {
		g.seriesIDs = append(g.seriesIDs, sid)
	}
	sort.Strings(g.seriesIDs)

	g.run()

	channelLabel := strconv.Itoa(in.Channel.Number)
	metrics.BlocksGeneratedTotal.WithLabelValues(channelLabel).Inc()
	if g.wentRelaxed {
		metrics.BlockGenerationRelaxedTotal.WithLabelValues(channelLabel).Inc()
	}

	return model.ScheduleBlock{
		ChannelID:  in.Channel.Number,
		BlockStart: blockStart,
		BlockEnd:   blockEnd,
		Programs:   g.programs,
		Seed:       hexSeed(seed),
		CreatedAt:  blockStart, // caller/store overwrites with the true persistence timestamp
	}
}

func (g *gen) run() {
	iterations := 0
	for g.cursor.Before(g.blockEnd.Add(-tailGapThreshold)) && g.failedAttempts < maxFailedAttempts {
		iterations++
		if iterations%10 == 0 {
			runtime.Gosched()
		}
		if g.failedAttempts == relaxAtAttempt {
			if g.relaxedAttempt() {
				continue
			}
			if g.blockEnd.Sub(g.cursor) < shortTailCutoff {
				g.emitInterstitial(g.cursor, g.blockEnd)
				g.cursor = g.blockEnd
				break
			}
			g.emitInterstitial(g.cursor, g.cursor.Add(tailGapThreshold))
			g.cursor = g.cursor.Add(tailGapThreshold)
			g.failedAttempts++
			continue
		}

		if g.attempt() {
			continue
		}
		g.failedAttempts++
	}

	g.tailFill()
}

// attempt runs one main-loop iteration: decide episode-run vs movie, commit
// what fits. Returns whether anything was scheduled.
func (g *gen) attempt() bool {
	wantEpisodeRun := len(g.series) > 0 && (len(g.standalone) == 0 || (g.rngSrc.Float64() < 0.6 && !g.isMovieOnly))
	if wantEpisodeRun {
		if g.episodeRun() {
			return true
		}
		return g.moviePick(false)
	}
	if g.moviePick(false) {
		return true
	}
	return g.episodeRun()
}

func (g *gen) episodeRun() bool {
	if len(g.series) == 0 {
		return false
	}

	candidates := g.seriesCandidates(g.lastBucket)
	if len(candidates) == 0 {
		candidates = g.seriesCandidates("")
	}
	if len(candidates) == 0 {
		return false
	}

	minUsed := g.seriesUsedCount[candidates[0]]
	for _, sid := range candidates {
		if c := g.seriesUsedCount[sid]; c < minUsed {
			minUsed = c
		}
	}
	var tier []string
	for _, sid := range candidates {
		if g.seriesUsedCount[sid] <= minUsed+1 {
			tier = append(tier, sid)
		}
	}

	var preferred []string
	for _, sid := range tier {
		ep, ok := g.peekNextEpisode(sid)
		if !ok {
			continue
		}
		if _, cd := g.cooldown[ep.ID]; cd {
			continue
		}
		if ep.ID == g.lastItemID {
			continue
		}
		preferred = append(preferred, sid)
	}
	pool := preferred
	if len(pool) == 0 {
		pool = tier
	}
	if len(pool) == 0 {
		return false
	}

	chosen := pool[g.rngSrc.IntN(len(pool))]
	runLen := g.rngSrc.IntN(4) + 2 // uniform [2,5]

	committedAny := false
	for i := 0; i < runLen; i++ {
		if !g.commitNextEpisode(chosen, false) {
			break
		}
		committedAny = true
	}
	if committedAny {
		g.seriesUsedCount[chosen]++
	}
	return committedAny
}

func (g *gen) seriesCandidates(bucket string) []string {
	var out []string
	for _, sid := range g.seriesIDs {
		if bucket == "" {
			out = append(out, sid)
			continue
		}
		ep, ok := g.peekNextEpisode(sid)
		if ok && ratingBucket(ep.Rating) == bucket {
			out = append(out, sid)
		}
	}
	return out
}

func (g *gen) peekNextEpisode(sid string) (model.LibraryItem, bool) {
	eps := g.series[sid]
	if len(eps) == 0 {
		return model.LibraryItem{}, false
	}
	idx := g.seriesIdx[sid] % len(eps)
	return eps[idx], true
}

// commitNextEpisode scans sid's episode list starting at its current index,
// skipping cooldown/conflicting/non-fitting entries, preferring ones not
// already used in this block, committing the first acceptable one. When
// relaxed is true, cooldown is ignored (conflicts never are).
func (g *gen) commitNextEpisode(sid string, relaxed bool) bool {
	eps := g.series[sid]
	n := len(eps)
	if n == 0 {
		return false
	}

	for pass := 0; pass < 2; pass++ {
		for step := 0; step < n; step++ {
			idx := (g.seriesIdx[sid] + step) % n
			ep := eps[idx]
			if _, cd := g.cooldown[ep.ID]; cd && !relaxed {
				continue
			}
			if !g.fits(ep.DurationMs) {
				continue
			}
			startMs, endMs := g.intervalMs(ep.DurationMs)
			if g.tracker.Conflicts(ep.ID, startMs, endMs) {
				continue
			}
			if pass == 0 && g.usedInBlock[ep.ID] {
				continue
			}
			g.commitReal(ep, startMs, endMs)
			g.seriesIdx[sid] = (idx + 1) % n
			return true
		}
	}
	return false
}

// moviePick selects one standalone movie for the current bucket.
// Cross-channel conflicts are always a hard exclusion (spec.md §8's
// no-overlap invariant); when relaxed is true (the failed-attempt-25 pass)
// only the cooldown set is ignored.
func (g *gen) moviePick(relaxed bool) bool {
	bucket := g.lastBucket
	var fitting []model.LibraryItem
	for _, m := range g.standalone {
		if bucket != "" && ratingBucket(m.Rating) != bucket {
			continue
		}
		if !g.fits(m.DurationMs) {
			continue
		}
		fitting = append(fitting, m)
	}
	if len(fitting) == 0 {
		return false
	}

	conflictFree := g.excludeConflicts(fitting)
	if len(conflictFree) == 0 {
		return false
	}

	pool := g.excludeCooldown(conflictFree)
	if len(pool) == 0 {
		if g.isMovieOnly || relaxed {
			pool = conflictFree
		} else {
			return false
		}
	}
	pool = excludeLastItemIfAlternatives(pool, g.lastItemID)

	chosen := g.scoreAndPick(pool)
	startMs, endMs := g.intervalMs(chosen.DurationMs)
	g.commitReal(chosen, startMs, endMs)
	return true
}

// excludeLastItemIfAlternatives hard-excludes lastItemID when other
// candidates exist, guaranteeing no immediate self-repeat whenever the
// library has more than one eligible item (spec.md §8).
func excludeLastItemIfAlternatives(pool []model.LibraryItem, lastItemID string) []model.LibraryItem {
	if lastItemID == "" || len(pool) <= 1 {
		return pool
	}
	var out []model.LibraryItem
	for _, it := range pool {
		if it.ID != lastItemID {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return pool
	}
	return out
}

func (g *gen) excludeConflicts(items []model.LibraryItem) []model.LibraryItem {
	var out []model.LibraryItem
	for _, it := range items {
		startMs, endMs := g.intervalMs(it.DurationMs)
		if g.tracker.Conflicts(it.ID, startMs, endMs) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (g *gen) excludeCooldown(items []model.LibraryItem) []model.LibraryItem {
	var out []model.LibraryItem
	for _, it := range items {
		if _, cd := g.cooldown[it.ID]; cd {
			continue
		}
		out = append(out, it)
	}
	return out
}

// scoreAndPick sorts pool ascending by (conflicts, in_cooldown, used_before,
// is_last_item, -duration), keeps the top movieRunPoolSize, and selects
// uniformly via the seeded RNG (spec.md §4.5).
func (g *gen) scoreAndPick(pool []model.LibraryItem) model.LibraryItem {
	type scored struct {
		item model.LibraryItem
		key  [5]int64
	}
	out := make([]scored, len(pool))
	for i, it := range pool {
		startMs, endMs := g.intervalMs(it.DurationMs)
		var conflicts, cooldownFlag, usedBefore, isLast int64
		if g.tracker.Conflicts(it.ID, startMs, endMs) {
			conflicts = 1
		}
		if _, cd := g.cooldown[it.ID]; cd {
			cooldownFlag = 1
		}
		if g.usedInBlock[it.ID] {
			usedBefore = 1
		}
		if it.ID == g.lastItemID {
			isLast = 1
		}
		out[i] = scored{item: it, key: [5]int64{conflicts, cooldownFlag, usedBefore, isLast, -it.DurationMs}}
	}
	sortScored(out)
	if len(out) > movieRunPoolSize {
		out = out[:movieRunPoolSize]
	}
	return out[g.rngSrc.IntN(len(out))].item
}

func sortScored(out []struct {
	item model.LibraryItem
	key  [5]int64
}) {
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j].key, out[j-1].key); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
}

func less(a, b [5]int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// relaxedAttempt implements the failed_attempts==25 fully-relaxed pass:
// any bucket, any cooldown, no conflicts, restricted only by duration fit.
func (g *gen) relaxedAttempt() bool {
	g.wentRelaxed = true
	saved := g.lastBucket
	g.lastBucket = ""
	defer func() { g.lastBucket = saved }()

	if g.moviePick(true) {
		return true
	}
	for _, sid := range g.seriesIDs {
		if g.commitNextEpisode(sid, true) {
			g.seriesUsedCount[sid]++
			return true
		}
	}
	return false
}

func (g *gen) fits(durationMs int64) bool {
	if durationMs <= 0 {
		return false
	}
	end := g.cursor.Add(time.Duration(durationMs) * time.Millisecond)
	return !end.After(g.blockEnd)
}

func (g *gen) intervalMs(durationMs int64) (startMs, endMs int64) {
	startMs = g.cursor.UnixMilli()
	endMs = g.cursor.Add(time.Duration(durationMs) * time.Millisecond).UnixMilli()
	return
}

func (g *gen) commitReal(it model.LibraryItem, startMs, endMs int64) {
	start := g.cursor
	end := time.UnixMilli(endMs).UTC()

	p := model.ScheduleProgram{
		Kind:         model.ProgramReal,
		ItemID:       it.ID,
		ContentType:  it.Kind,
		Year:         it.ProductionYear,
		Rating:       it.Rating,
		ThumbnailURL: it.ThumbnailURL,
		BannerURL:    it.BannerURL,
		SeriesID:     it.SeriesID,
		StartTime:    start,
		EndTime:      end,
		DurationMs:   it.DurationMs,
	}
	if it.Kind == model.KindEpisode {
		title := it.SeriesName
		if title == "" {
			title = it.Name
		}
		p.Title = title
		p.Subtitle = episodeLabel(it)
	} else {
		p.Title = it.Name
	}

	g.programs = append(g.programs, p)
	g.cursor = end
	g.usedInBlock[it.ID] = true
	g.lastItemID = it.ID
	g.lastBucket = ratingBucket(it.Rating)
	g.tracker.Book(it.ID, startMs, endMs)
}

func (g *gen) emitInterstitial(start, end time.Time) {
	title := "Coming Up Next"
	if hint, ok := g.peekAnyHint(); ok {
		title = "Next Up: " + hint
	}
	g.programs = append(g.programs, model.ScheduleProgram{
		Kind:       model.ProgramInterstitial,
		Title:      title,
		StartTime:  start,
		EndTime:    end,
		DurationMs: end.Sub(start).Milliseconds(),
	})
	g.lastBucket = ""
	g.lastItemID = ""
}

// peekAnyHint looks for any item (ignoring bucket/cooldown/conflicts) that
// would plausibly air next, purely to label the interstitial.
func (g *gen) peekAnyHint() (string, bool) {
	for _, m := range g.standalone {
		return m.Name, true
	}
	for _, sid := range g.seriesIDs {
		if ep, ok := g.peekNextEpisode(sid); ok {
			title := ep.SeriesName
			if title == "" {
				title = ep.Name
			}
			return title, true
		}
	}
	return "", false
}

func episodeLabel(it model.LibraryItem) string {
	return "S" + pad2(it.SeasonIndex) + "E" + pad2(it.EpisodeIndex)
}

func pad2(n int) string {
	if n < 0 {
		n = 0
	}
	if n < 10 {
		return "0" + itoa(n)
	}
	return itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func hexSeed(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// tailFill covers [cursor, blockEnd) after the main loop: up to
// tailFillMaxTries iterations picking the longest fitting non-conflicting
// item, then one interstitial for whatever remains (spec.md §4.5).
func (g *gen) tailFill() {
	if !g.cursor.Before(g.blockEnd) {
		return
	}

	all := make([]model.LibraryItem, 0, len(g.standalone))
	all = append(all, g.standalone...)
	for _, sid := range g.seriesIDs {
		all = append(all, g.series[sid]...)
	}

	for tries := 0; tries < tailFillMaxTries && g.cursor.Before(g.blockEnd); tries++ {
		best, ok := g.longestFitting(all)
		if !ok {
			break
		}
		startMs, endMs := g.intervalMs(best.DurationMs)
		g.commitReal(best, startMs, endMs)
	}

	if g.cursor.Before(g.blockEnd) {
		g.emitInterstitial(g.cursor, g.blockEnd)
		g.cursor = g.blockEnd
	}
}

func (g *gen) longestFitting(items []model.LibraryItem) (model.LibraryItem, bool) {
	var best model.LibraryItem
	found := false
	for _, it := range items {
		if !g.fits(it.DurationMs) {
			continue
		}
		startMs, endMs := g.intervalMs(it.DurationMs)
		if g.tracker.Conflicts(it.ID, startMs, endMs) {
			continue
		}
		if !found || it.DurationMs > best.DurationMs {
			best = it
			found = true
		}
	}
	return best, found
}
