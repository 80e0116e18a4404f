package assessment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/suPer8Hu/assessment-client/internal/logger"
)

type targetKind int

const (
	targetPage targetKind = iota
	targetNext
	targetPrevious
)

// PageTarget is a pagination request: an absolute page, or next/previous.
type PageTarget struct {
	kind targetKind
	page int
}

func ToPage(n int) PageTarget { return PageTarget{kind: targetPage, page: n} }
func NextPage() PageTarget { return PageTarget{kind: targetNext} }
func PreviousPage() PageTarget { return PageTarget{kind: targetPrevious} }

// ParsePageTarget accepts "next", "previous"/"prev" or a page number.
func ParsePageTarget(s string) (PageTarget, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "next":
		return NextPage(), nil
	case "previous", "prev":
		return PreviousPage(), nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return PageTarget{}, fmt.Errorf("invalid page target %q", s)
	}
	return ToPage(n), nil
}

func (t PageTarget) String() string {
	switch t.kind {
	case targetNext:
		return "next"
	case targetPrevious:
		return "previous"
	}
	return strconv.Itoa(t.page)
}

// resolve turns the target into a page number clamped to [1, max(totalPages,1)].
func (t PageTarget) resolve(current, totalPages int) int {
	p := t.page
	switch t.kind {
	case targetNext:
		p = current + 1
	case targetPrevious:
		p = current - 1
	}
	return clampPage(p, totalPages)
}

// ListController owns the paginated session list.
//
//	Idle/Loaded/Errored --Refresh--> Loading --> Loaded | Errored
type ListController struct {
	repo  *Repo
	sync  *Synchronizer
	state *State
	log   *logger.Logger
}

func NewListController(repo *Repo, sync *Synchronizer, state *State, log *logger.Logger) *ListController {
	if log == nil {
		log = logger.Nop()
	}
	return &ListController{repo: repo, sync: sync, state: state, log: log.With("service", "ListController")}
}

// Refresh loads one page. On failure the list is emptied and the counters zeroed rather
// than left stale. A response overtaken by a newer Refresh is dropped.
func (c *ListController) Refresh(ctx context.Context, page, pageSize int) error {
	if !IsAllowedPageSize(pageSize) {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	seq := c.state.beginListLoad()
	res, err := c.repo.List(ctx, page, pageSize)
	if err != nil {
		if c.state.failListLoad(seq, pageSize) {
			c.log.Warn("session list refresh failed", "page", page, "page_size", pageSize, "error", err)
		}
		return err
	}

	if !c.sync.ReplaceList(seq, res.Sessions, res.Pagination) {
		c.log.Debug("stale session list response dropped", "page", page)
		return nil
	}
	c.log.Debug("session list loaded", "page", res.Pagination.Page, "count", len(res.Sessions),
		"total", res.Pagination.TotalSessions)
	return nil
}

// Paginate moves to target. It only refreshes when the clamped page differs from the
// current one, so "next" on the last page is a no-op.
func (c *ListController) Paginate(ctx context.Context, target PageTarget) (bool, error) {
	pg := c.state.Pagination()
	p := target.resolve(pg.Page, pg.TotalPages)
	if p == pg.Page {
		return false, nil
	}
	return true, c.Refresh(ctx, p, pg.PageSize)
}

// ChangePageSize resets to page 1 with the new size.
func (c *ListController) ChangePageSize(ctx context.Context, n int) error {
	if !IsAllowedPageSize(n) {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	return c.Refresh(ctx, 1, n)
}
