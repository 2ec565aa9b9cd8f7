package identity

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"flashbulb/internal/logging"
	"flashbulb/internal/namecache"
	"flashbulb/internal/services"
)

var nsidPattern = regexp.MustCompile(`^\d+@N\d{2}$`)

// IsNSID reports whether id has the shape of an account identifier.
func IsNSID(id string) bool {
	return nsidPattern.MatchString(strings.TrimSpace(id))
}

// Options tune a Resolver.
type Options struct {
	// Enabled allows network lookups. When false the resolver only reads the cache.
	Enabled           bool
	Concurrency       int
	RequestsPerSecond float64
	// FlushEvery persists the cache after this many lookup results. Zero
	// flushes only at the end.
	FlushEvery   int
	RetryPending bool
	// Timeout bounds each lookup.
	Timeout time.Duration
}

// Result summarises one Resolve call.
type Result struct {
	// Names maps every requested identifier with a known display name.
	Names map[string]string
	// Cached counts identifiers answered from the cache.
	Cached int
	// Resolved counts identifiers resolved by lookup in this call.
	Resolved int
	// Pending lists identifiers left without a name, sorted.
	Pending []string
	// Skipped counts identifiers that are not NSIDs.
	Skipped int
}

// Resolver maps identifiers to display names through a namecache and a Lookup.
type Resolver struct {
	cache   *namecache.Cache
	lookup  Lookup
	opts    Options
	logger  *slog.Logger
	limiter *rate.Limiter
	// attempted remembers identifiers already looked up in this run.
	attempted *gocache.Cache
}

// NewResolver builds a Resolver. lookup may be nil when opts.Enabled is false.
func NewResolver(cache *namecache.Cache, lookup Lookup, opts Options, logger *slog.Logger) (*Resolver, error) {
	if cache == nil {
		return nil, errors.New("name cache required")
	}
	if opts.Enabled && lookup == nil {
		return nil, errors.New("lookup required when identity lookups are enabled")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Resolver{
		cache:     cache,
		lookup:    lookup,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "identity"),
		limiter:   rate.NewLimiter(limit, 1),
		attempted: gocache.New(gocache.NoExpiration, 0),
	}, nil
}

// Seed records an authoritative name, such as the account owner's, without a
// lookup. Existing resolved names are kept.
func (r *Resolver) Seed(nsid, name string) {
	if _, ok := r.cache.Name(nsid); ok || strings.TrimSpace(name) == "" {
		return
	}
	if err := r.cache.SetName(nsid, name); err != nil {
		r.logger.Debug("seed name skipped", logging.String("nsid", nsid), logging.Error(err))
	}
}

type lookupResult struct {
	nsid string
	name string
	err  error
}

// Resolve returns display names for ids. Cached names are used first; missing
// NSIDs are looked up when enabled. Lookup failures never fail the call: the
// identifier is stored as pending. Only context cancellation returns an error,
// after the cache has been persisted.
func (r *Resolver) Resolve(ctx context.Context, ids []string) (Result, error) {
	result := Result{Names: make(map[string]string)}
	var queue []string
	for _, id := range distinct(ids) {
		if !IsNSID(id) {
			result.Skipped++
			continue
		}
		entry, ok := r.cache.Lookup(id)
		switch {
		case ok && entry.Resolved():
			result.Names[id] = entry.Name
			result.Cached++
			continue
		case ok && !r.opts.RetryPending, !r.opts.Enabled:
			result.Pending = append(result.Pending, id)
			continue
		}
		if err := r.attempted.Add(id, struct{}{}, gocache.NoExpiration); err != nil {
			// Already looked up earlier in this run and still unresolved.
			result.Pending = append(result.Pending, id)
			continue
		}
		queue = append(queue, id)
	}

	if len(queue) > 0 {
		r.logger.Info("resolving author names",
			logging.Int("lookups", len(queue)),
			logging.Int("cached", result.Cached),
			logging.String(logging.FieldEventType, "identity_lookup_start"),
		)
	}
	lookupErr := r.run(ctx, queue, &result)

	if err := r.flush(); err != nil {
		logging.WarnWithContext(r.logger, "name cache not saved", "name_cache_save_failed",
			logging.String("path", r.cache.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on paths.name_cache"),
			logging.String(logging.FieldImpact, "resolved names will be looked up again next run"),
		)
	}
	sort.Strings(result.Pending)
	return result, lookupErr
}

// run fans lookups out to a bounded worker group. Workers only send results;
// the collector below is the single writer to the cache.
func (r *Resolver) run(ctx context.Context, queue []string, result *Result) error {
	if len(queue) == 0 {
		return nil
	}
	results := make(chan lookupResult)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.collect(results, result)
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.Concurrency)
	for _, nsid := range queue {
		group.Go(func() error {
			if err := r.limiter.Wait(groupCtx); err != nil {
				return err
			}
			lookupCtx := groupCtx
			if r.opts.Timeout > 0 {
				var cancel context.CancelFunc
				lookupCtx, cancel = context.WithTimeout(groupCtx, r.opts.Timeout)
				defer cancel()
			}
			name, err := r.lookup.DisplayName(lookupCtx, nsid)
			results <- lookupResult{nsid: nsid, name: strings.TrimSpace(name), err: err}
			return nil
		})
	}
	err := group.Wait()
	close(results)
	<-done

	if err != nil {
		// Identifiers never attempted stay pending for the next run.
		for _, nsid := range queue {
			if _, ok := result.Names[nsid]; ok || containsString(result.Pending, nsid) {
				continue
			}
			r.markPending(nsid)
			result.Pending = append(result.Pending, nsid)
		}
		return err
	}
	return nil
}

func (r *Resolver) collect(results <-chan lookupResult, result *Result) {
	sinceFlush := 0
	for res := range results {
		if res.err == nil && res.name == "" {
			res.err = ErrNoDisplayName
		}
		if res.err != nil {
			r.markPending(res.nsid)
			result.Pending = append(result.Pending, res.nsid)
			err := services.Wrap(services.ErrLookup, services.StageIdentity, "profile lookup", res.nsid, res.err)
			logging.WarnWithContext(r.logger, "author name unresolved", "identity_lookup_failed",
				logging.String("nsid", res.nsid),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun later or set the name with 'flashbulb names set'"),
				logging.String(logging.FieldImpact, "comments show the raw identifier"),
			)
		} else {
			if err := r.cache.SetName(res.nsid, res.name); err != nil {
				r.logger.Debug("resolved name not cached", logging.String("nsid", res.nsid), logging.Error(err))
			}
			result.Names[res.nsid] = res.name
			result.Resolved++
			r.logger.Debug("author name resolved",
				logging.String("nsid", res.nsid),
				logging.String("name", res.name),
			)
		}

		sinceFlush++
		if r.opts.FlushEvery > 0 && sinceFlush >= r.opts.FlushEvery {
			sinceFlush = 0
			if err := r.flush(); err != nil {
				r.logger.Debug("periodic name cache flush failed", logging.Error(err))
			}
		}
	}
}

func (r *Resolver) markPending(nsid string) {
	if err := r.cache.MarkPending(nsid); err != nil {
		r.logger.Debug("pending author not cached", logging.String("nsid", nsid), logging.Error(err))
	}
}

func (r *Resolver) flush() error {
	if !r.cache.Dirty() {
		return nil
	}
	return r.cache.Save()
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
