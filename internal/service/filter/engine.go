package filter

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/company"
	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
)

// Engine memoizes filter results per dataset. An entry is reused while the
// filter inputs, the criteria and the calendar day are unchanged. Entries hold
// positions, so a hit always returns the caller's current views.
type Engine struct {
	mu          sync.Mutex
	maxDatasets int
	datasets    map[string]*dataset

	hits   uint64
	misses uint64
}

type dataset struct {
	fingerprint uint64
	generation  uint64
	results     map[memoKey][]int
}

type memoKey struct {
	criteria string
	day      string
}

func NewEngine(maxDatasets int) *Engine {
	if maxDatasets <= 0 {
		maxDatasets = 64
	}
	return &Engine{maxDatasets: maxDatasets, datasets: make(map[string]*dataset)}
}

// Apply filters the views of a dataset (for example a cycle ID). A change
// in any filtered field starts a new generation and drops the memoized
// results. Record state the filters do not read, like status and documents,
// never invalidates.
func (e *Engine) Apply(datasetID string, views []payroll.RecordView, c Criteria, now time.Time) []payroll.RecordView {
	fp := fingerprint(views)
	key := memoKey{criteria: c.key(), day: now.In(time.Local).Format("2006-01-02")}

	e.mu.Lock()
	ds, ok := e.datasets[datasetID]
	if !ok {
		if len(e.datasets) >= e.maxDatasets {
			for id := range e.datasets {
				delete(e.datasets, id)
				break
			}
		}
		ds = &dataset{fingerprint: fp, results: make(map[memoKey][]int)}
		e.datasets[datasetID] = ds
	} else if ds.fingerprint != fp {
		ds.fingerprint = fp
		ds.generation++
		ds.results = make(map[memoKey][]int)
	}
	if cached, ok := ds.results[key]; ok {
		e.hits++
		e.mu.Unlock()
		return pick(views, cached)
	}
	e.misses++
	e.mu.Unlock()

	matched := make([]int, 0, len(views))
	for i, v := range views {
		if Matches(v, c, now) {
			matched = append(matched, i)
		}
	}

	e.mu.Lock()
	if cur, ok := e.datasets[datasetID]; ok && cur.fingerprint == fp {
		cur.results[key] = matched
	}
	e.mu.Unlock()

	return pick(views, matched)
}

func pick(views []payroll.RecordView, idx []int) []payroll.RecordView {
	out := make([]payroll.RecordView, len(idx))
	for i, j := range idx {
		out[i] = views[j]
	}
	return out
}

// Generation returns the records generation of a dataset.
func (e *Engine) Generation(datasetID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ds, ok := e.datasets[datasetID]; ok {
		return ds.generation
	}
	return 0
}

// Stats returns memo hits and misses.
func (e *Engine) Stats() (hits, misses uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits, e.misses
}

// fingerprint hashes the record order and every field the filters read.
func fingerprint(views []payroll.RecordView) uint64 {
	h := fnv.New64a()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	for _, v := range views {
		write(v.Record.ID)
		write(v.Record.CompanyName)
		write(v.Company.Name)
		for _, cat := range sortedCategories(v) {
			w := v.Company.Categories[cat]
			write(string(cat))
			write(w.From)
			write(w.To)
		}
		if v.Obligation != nil {
			write(v.Obligation.Status)
			write(v.Obligation.EffectiveFrom)
		} else {
			write("\x01")
		}
	}
	return h.Sum64()
}

func sortedCategories(v payroll.RecordView) []company.Category {
	out := make([]company.Category, 0, len(v.Company.Categories))
	for _, c := range company.Categories {
		if _, ok := v.Company.Categories[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
