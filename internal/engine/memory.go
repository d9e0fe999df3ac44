package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
)

// MemoryCapacity is the fixed FIFO capacity of the Memory Store (C5).
const MemoryCapacity = 100

// memoryDoc is the bleve document shape indexed for recall once the store
// grows past jaccardFallbackThreshold; below that, plain Jaccard similarity
// over digests is cheap enough that an index adds nothing but overhead.
type memoryDoc struct {
	ToolName string `json:"tool_name"`
	Digest   string `json:"digest"`
	Summary  string `json:"summary"`
}

const jaccardFallbackThreshold = 16

// MemoryStore is a fixed-capacity FIFO buffer of Memory Records, with
// similarity-based recall for re-surfacing relevant prior observations into
// a prompt. Owned exclusively by one Orchestrator invocation; never shared
// across tasks.
type MemoryStore struct {
	records  []MemoryRecord
	capacity int
	index    bleve.Index // lazily built once len(records) exceeds the threshold
}

// NewMemoryStore returns an empty store at the spec's default capacity.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{capacity: MemoryCapacity}
}

// Record appends a new observation digest, evicting the oldest record on
// overflow (FIFO).
func (m *MemoryStore) Record(toolName, argDigest, observationSummary string) {
	r := MemoryRecord{
		ToolName:           toolName,
		ArgDigest:          argDigest,
		ObservationSummary: observationSummary,
		Timestamp:          time.Now(),
	}
	m.records = append(m.records, r)
	if len(m.records) > m.capacity {
		m.records = m.records[len(m.records)-m.capacity:]
	}
	m.index = nil // invalidate; rebuilt lazily on next Recall
}

// Len returns the current record count.
func (m *MemoryStore) Len() int { return len(m.records) }

// InvalidateByPath drops every record whose observation summary mentions
// path, returning the number removed. Wired to a filesystem.Watcher so a
// recalled observation about a file never outlives an out-of-band edit to
// that file (spec's staleness note on C5 Memory Store).
func (m *MemoryStore) InvalidateByPath(path string) int {
	if path == "" {
		return 0
	}
	kept := m.records[:0:0]
	removed := 0
	for _, r := range m.records {
		if strings.Contains(r.ObservationSummary, path) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed > 0 {
		m.records = kept
		m.index = nil
	}
	return removed
}

// Digest produces a stable similarity key for a tool invocation, combining
// the tool name with a short hash of its arguments. Order of map iteration
// does not affect the digest because keys are sorted first.
func Digest(toolName string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(toolName)
	for _, k := range keys {
		fmt.Fprintf(&sb, "|%s=%v", k, args[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return toolName + ":" + hex.EncodeToString(sum[:8])
}

// Recall returns up to k records ranked by similarity to similarityKey,
// most similar first. Below jaccardFallbackThreshold records it scores
// every record directly with Jaccard similarity over token-shingled
// digests; above that it queries a lazily-built in-memory bleve index
// (avoids an O(n) scan per recall once the FIFO is close to full).
func (m *MemoryStore) Recall(similarityKey string, k int) []MemoryRecord {
	if len(m.records) == 0 || k <= 0 {
		return nil
	}

	if len(m.records) <= jaccardFallbackThreshold {
		return m.recallJaccard(similarityKey, k)
	}
	if recs := m.recallBleve(similarityKey, k); recs != nil {
		return recs
	}
	return m.recallJaccard(similarityKey, k)
}

func (m *MemoryStore) recallJaccard(similarityKey string, k int) []MemoryRecord {
	type scored struct {
		rec   MemoryRecord
		score float64
	}
	querySet := shingle(similarityKey)

	scoredRecs := make([]scored, 0, len(m.records))
	for _, r := range m.records {
		candidate := shingle(r.ToolName + " " + r.ArgDigest)
		scoredRecs = append(scoredRecs, scored{rec: r, score: jaccardSimilarity(querySet, candidate)})
	}

	sort.SliceStable(scoredRecs, func(i, j int) bool { return scoredRecs[i].score > scoredRecs[j].score })

	if k > len(scoredRecs) {
		k = len(scoredRecs)
	}
	out := make([]MemoryRecord, k)
	for i := 0; i < k; i++ {
		out[i] = scoredRecs[i].rec
	}
	return out
}

func (m *MemoryStore) recallBleve(similarityKey string, k int) []MemoryRecord {
	if m.index == nil {
		idx, err := buildMemoryIndex(m.records)
		if err != nil {
			return nil
		}
		m.index = idx
	}

	query := bleve.NewMatchQuery(similarityKey)
	req := bleve.NewSearchRequest(query)
	req.Size = k
	result, err := m.index.Search(req)
	if err != nil {
		return nil
	}

	out := make([]MemoryRecord, 0, len(result.Hits))
	for _, hit := range result.Hits {
		var idx int
		if _, err := fmt.Sscanf(hit.ID, "%d", &idx); err != nil {
			continue
		}
		if idx >= 0 && idx < len(m.records) {
			out = append(out, m.records[idx])
		}
	}
	return out
}

func buildMemoryIndex(records []MemoryRecord) (bleve.Index, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}
	for i, r := range records {
		doc := memoryDoc{ToolName: r.ToolName, Digest: r.ArgDigest, Summary: r.ObservationSummary}
		if err := idx.Index(fmt.Sprintf("%d", i), doc); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// shingle splits s into lowercase word tokens for Jaccard comparison.
func shingle(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// jaccardSimilarity computes |A∩B| / |A∪B|, treating two empty sets as
// maximally dissimilar (0) rather than dividing by zero.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
