// Package sampling draws frequency-weighted samples of domains and query
// terms from parsed query logs. Heavier traffic means a proportionally
// higher chance of selection, so the sampled workload resembles what users
// actually search for.
package sampling

import (
	"math/rand"
	"sort"

	"github.com/rs/zerolog"

	"github.com/opencatalog/arcs/internal/ingest/logparse"
)

const (
	// DefaultMinQueryCount is the minimum traffic a domain needs to be
	// eligible for sampling.
	DefaultMinQueryCount = 10

	// DefaultMinUniqueTerms is the minimum number of distinct query terms
	// a domain needs before its queries are sampled.
	DefaultMinUniqueTerms = 10

	// Buffer factors oversample so that downstream filtering (language,
	// result count) can discard candidates without starving the sample.
	DefaultDomainBufferFactor = 2
	DefaultQueryBufferFactor  = 2
)

// QueryCount is one sampled (domain, query) pair with its traffic count.
type QueryCount struct {
	Domain string
	Query  string
	Count  int
}

// Sampler draws weighted samples using an injected random source, so runs
// are reproducible under a fixed seed.
type Sampler struct {
	rng *rand.Rand
	log zerolog.Logger
}

// New creates a Sampler seeded with the given value.
func New(seed int64, log zerolog.Logger) *Sampler {
	return &Sampler{
		rng: rand.New(rand.NewSource(seed)),
		log: log.With().Str("component", "sampler").Logger(),
	}
}

type weightedItem struct {
	key   string
	count int
}

// countBy tallies records by key and returns the tallies sorted by
// descending count, then key. Sorting keeps sampling deterministic for a
// fixed seed despite map iteration order.
func countBy(records []logparse.Record, key func(logparse.Record) string) []weightedItem {
	counts := make(map[string]int)

	for _, rec := range records {
		counts[key(rec)]++
	}

	items := make([]weightedItem, 0, len(counts))
	for k, c := range counts {
		items = append(items, weightedItem{key: k, count: c})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}

		return items[i].key < items[j].key
	})

	return items
}

// sample draws up to n items without replacement, each draw weighted by the
// remaining items' counts.
func (s *Sampler) sample(items []weightedItem, n int) []weightedItem {
	pool := make([]weightedItem, len(items))
	copy(pool, items)

	if n > len(pool) {
		n = len(pool)
	}

	picked := make([]weightedItem, 0, n)

	for len(picked) < n {
		total := 0
		for _, it := range pool {
			total += it.count
		}

		target := s.rng.Intn(total)

		idx := 0
		for acc := pool[idx].count; acc <= target; acc += pool[idx].count {
			idx++
		}

		picked = append(picked, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	return picked
}

// Domains draws a traffic-weighted sample of up to numDomains domains,
// considering only domains with at least minQueryCount records.
func (s *Sampler) Domains(records []logparse.Record, numDomains, minQueryCount int) []string {
	items := countBy(records, func(r logparse.Record) string { return r.Domain })

	eligible := items[:0]
	for _, it := range items {
		if it.count >= minQueryCount {
			eligible = append(eligible, it)
		}
	}

	picked := s.sample(eligible, numDomains)

	domains := make([]string, 0, len(picked))
	for _, it := range picked {
		domains = append(domains, it.key)
	}

	s.log.Debug().Int("eligible", len(eligible)).Int("sampled", len(domains)).Msg("sampled domains")

	return domains
}

// Options tune QueriesByDomain; zero values fall back to the defaults.
type Options struct {
	MinQueryCount      int
	MinUniqueTerms     int
	DomainBufferFactor int
	QueryBufferFactor  int

	// Domains, when non-empty, skips domain sampling and uses the given
	// domains directly.
	Domains []string
}

func (o *Options) applyDefaults() {
	if o.MinQueryCount == 0 {
		o.MinQueryCount = DefaultMinQueryCount
	}

	if o.MinUniqueTerms == 0 {
		o.MinUniqueTerms = DefaultMinUniqueTerms
	}

	if o.DomainBufferFactor == 0 {
		o.DomainBufferFactor = DefaultDomainBufferFactor
	}

	if o.QueryBufferFactor == 0 {
		o.QueryBufferFactor = DefaultQueryBufferFactor
	}
}

// QueriesByDomain samples numDomains domains (buffered by the domain buffer
// factor) and, for each domain with enough distinct query terms, draws a
// frequency-weighted sample of queriesPerDomain queries (buffered by the
// query buffer factor). Oversampling leaves room for downstream filters to
// reject candidates.
func (s *Sampler) QueriesByDomain(records []logparse.Record, numDomains, queriesPerDomain int, opts Options) []QueryCount {
	opts.applyDefaults()

	domains := opts.Domains
	if len(domains) == 0 {
		domains = s.Domains(records, numDomains*opts.DomainBufferFactor, opts.MinQueryCount)
	}

	byDomain := make(map[string][]logparse.Record)
	for _, rec := range records {
		byDomain[rec.Domain] = append(byDomain[rec.Domain], rec)
	}

	sorted := make([]string, len(domains))
	copy(sorted, domains)
	sort.Strings(sorted)

	var out []QueryCount

	for _, domain := range sorted {
		counts := countBy(byDomain[domain], func(r logparse.Record) string { return r.Query })
		if len(counts) < opts.MinUniqueTerms {
			continue
		}

		for _, it := range s.sample(counts, queriesPerDomain*opts.QueryBufferFactor) {
			out = append(out, QueryCount{Domain: domain, Query: it.key, Count: it.count})
		}
	}

	s.log.Debug().Int("pairs", len(out)).Msg("sampled domain-query pairs")

	return out
}
