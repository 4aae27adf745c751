package action

// Mapping kinds recorded in Context.IDMappings. The key is the source
// forge's identifier rendered as a string, the value is the number the
// destination assigned.
const (
	MappingIssue       = "issue"
	MappingPullRequest = "pull_request"
	MappingMilestone   = "milestone"
	MappingRelease     = "release"
)

// HistoryEntry pairs an executed action with its result so a rollback
// can traverse the run in reverse order.
type HistoryEntry struct {
	Spec   Spec
	Result *Result
}

// Context is the shared state of one apply run: the destination
// coordinates, the results keyed by idempotency key, the ordered
// execution history, and the source-to-destination id mappings.
//
// Apply is single-writer; if the orchestrator is ever parallelized
// these fields need their own locks.
type Context struct {
	Owner  string
	Repo   string
	DryRun bool

	Executed   map[string]*Result
	History    []HistoryEntry
	IDMappings map[string]map[string]int64
}

// NewContext returns a Context for the given destination repository.
func NewContext(owner, repo string) *Context {
	return &Context{
		Owner:      owner,
		Repo:       repo,
		Executed:   make(map[string]*Result),
		IDMappings: make(map[string]map[string]int64),
	}
}

// Replayed returns the stored result for an idempotency key, if the
// action already ran in this context.
func (c *Context) Replayed(key string) (*Result, bool) {
	if key == "" {
		return nil, false
	}
	res, ok := c.Executed[key]
	return res, ok
}

// Record stores a successfully executed action in the history and, when
// the spec carries an idempotency key, indexes the result for replay.
func (c *Context) Record(spec Spec, res *Result) {
	c.History = append(c.History, HistoryEntry{Spec: spec, Result: res})
	if spec.IdempotencyKey != "" {
		c.Executed[spec.IdempotencyKey] = res
	}
}

// MapID records that the source object of the given kind now exists on
// the destination under dest.
func (c *Context) MapID(kind, source string, dest int64) {
	m := c.IDMappings[kind]
	if m == nil {
		m = make(map[string]int64)
		c.IDMappings[kind] = m
	}
	m[source] = dest
}

// LookupID resolves a previously recorded mapping.
func (c *Context) LookupID(kind, source string) (int64, bool) {
	dest, ok := c.IDMappings[kind][source]
	return dest, ok
}
