package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Match is a resolved element. The caller owns Element; the Resolver keeps
// no reference to it.
type Match struct {
	Element   Element
	Candidate Candidate
	// Phase is PhaseWait or PhaseScan, whichever produced the element.
	Phase Phase
}

// Resolver turns field names into elements on one Page. It holds only
// configuration and may be shared by goroutines that share a Page safe for
// concurrent use.
type Resolver struct {
	page            Page
	gen             *Generator
	presenceTimeout time.Duration
	staleRetries    int
	log             *zap.Logger
}

// New returns a Resolver over page.
func New(page Page, opts ...Option) (*Resolver, error) {
	if page == nil {
		return nil, errors.New("locate: nil page")
	}
	r := &Resolver{
		page:            page,
		gen:             NewGenerator(),
		presenceTimeout: DefaultPresenceTimeout,
		staleRetries:    DefaultStaleRetries,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("locate: %w", err)
		}
	}
	return r, nil
}

// Candidates returns the list Resolve would try for field.
func (r *Resolver) Candidates(field string) []Candidate {
	return r.gen.Generate(field)
}

// Resolve finds the first candidate whose element is visible and enabled.
//
// Phase 1 waits up to the presence timeout for each candidate in rank order
// and gates the first element the page returns. Phase 2 queries every
// candidate again without waiting and gates each element of the result; a
// stale element triggers a bounded re-query of that candidate. When both
// phases are exhausted the error is a *NotFoundError.
func (r *Resolver) Resolve(ctx context.Context, field string) (*Match, error) {
	name := strings.TrimSpace(field)
	if name == "" {
		return nil, ErrInvalidField
	}
	s := &scan{r: r, field: name, cands: r.gen.Generate(name), phase: PhaseIdle}

	m, err := s.wait(ctx)
	if err == nil && m == nil {
		m, err = s.sweep(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("locate: resolving %q: %w", name, err)
	}
	if m != nil {
		s.phase = PhaseResolved
		r.log.Info("field resolved",
			zap.String("field", name),
			zap.Stringer("locator", m.Candidate.Locator),
			zap.String("rule", m.Candidate.Rule),
			zap.Int("rank", m.Candidate.Rank),
			zap.String("phase", string(m.Phase)),
			zap.String("origin", string(m.Candidate.Origin)),
		)
		return m, nil
	}

	s.phase = PhaseFailed
	nf := &NotFoundError{Field: name, Candidates: s.cands, Attempts: s.attempts}
	r.log.Error("field not resolved",
		zap.String("field", name),
		zap.Strings("attempted", nf.Attempted()),
	)
	return nil, nf
}

// scan is the state of one Resolve call.
type scan struct {
	r        *Resolver
	field    string
	cands    []Candidate
	phase    Phase
	attempts []Attempt
}

func (s *scan) miss(c Candidate, idx int, reason string, err error) {
	s.attempts = append(s.attempts, Attempt{Candidate: c, Phase: s.phase, Index: idx, Reason: reason, Err: err})
	s.r.log.Debug("candidate missed",
		zap.String("field", s.field),
		zap.String("phase", string(s.phase)),
		zap.Stringer("candidate", c),
		zap.Int("index", idx),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func (s *scan) wait(ctx context.Context) (*Match, error) {
	s.phase = PhaseWait
	for _, c := range s.cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		el, err := s.r.page.WaitForPresence(ctx, c.Locator, s.r.presenceTimeout)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			reason := "error"
			if errors.Is(err, ErrTimeout) {
				reason = "absent"
			}
			s.miss(c, -1, reason, err)
			continue
		}
		v := Accept(el)
		if v.Passed() {
			return &Match{Element: el, Candidate: c, Phase: PhaseWait}, nil
		}
		s.miss(c, -1, v.Gate+" "+v.Outcome.String(), v.Err)
	}
	return nil, nil
}

func (s *scan) sweep(ctx context.Context) (*Match, error) {
	s.phase = PhaseScan
	for _, c := range s.cands {
		m, err := s.sweepOne(ctx, c)
		if m != nil || err != nil {
			return m, err
		}
	}
	return nil, nil
}

func (s *scan) sweepOne(ctx context.Context, c Candidate) (*Match, error) {
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		els, err := s.r.page.QueryAll(ctx, c.Locator)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			s.miss(c, -1, "error", err)
			return nil, nil
		}
		if len(els) == 0 {
			s.miss(c, -1, "absent", nil)
			return nil, nil
		}

		requery := false
		for i, el := range els {
			v := Accept(el)
			if v.Passed() {
				return &Match{Element: el, Candidate: c, Phase: PhaseScan}, nil
			}
			if v.Stale() {
				if retries < s.r.staleRetries {
					retries++
					s.miss(c, i, "stale, re-querying", v.Err)
					requery = true
				} else {
					s.miss(c, i, "stale, retries exhausted", v.Err)
				}
				break
			}
			s.miss(c, i, v.Gate+" "+v.Outcome.String(), v.Err)
		}
		if !requery {
			return nil, nil
		}
	}
}
