package marking

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// getAllTabs returns the submission's pages in sequence order with their
// annotations. The image variant honors student anonymity; marker identity
// on annotations honors marker anonymity. A student opening her own work
// marks the submission as seen and refreshes its timestamp on every view.
func (svc *service) getAllTabs(ctx context.Context, rc *requestContext) (interface{}, error) {
	pages, err := svc.repo.ListPages(ctx, rc.submission.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing pages")
	}
	comments, err := svc.repo.ListComments(ctx, rc.draft.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	byPage := make(map[int][]CommentView, len(pages))
	for _, c := range comments {
		v := CommentView{
			ID:          c.ID,
			PageID:      c.PageID,
			Content:     c.Content,
			PosX:        c.PosX,
			PosY:        c.PosY,
			Width:       c.Width,
			Height:      c.Height,
			Format:      c.Format,
			CriterionID: c.CriterionID,
			LevelID:     c.LevelID,
			Score:       c.Score,
			Bonus:       c.Bonus,
			Colour:      c.Colour,
		}
		if !rc.access.MarkerAnonymous {
			v.MarkerID = c.MarkerID
			v.MarkerName = c.MarkerName
		}
		byPage[c.PageID] = append(byPage[c.PageID], v)
	}

	tabs := make([]PageTab, 0, len(pages))
	for _, p := range pages {
		url := p.ImageURL
		if rc.access.StudentAnonymous && p.AnonymousImageURL != "" {
			url = p.AnonymousImageURL
		}
		views := byPage[p.ID]
		if views == nil {
			views = []CommentView{}
		}
		tabs = append(tabs, PageTab{
			ID:       p.ID,
			PageNo:   p.PageNo,
			ImageURL: url,
			Width:    p.Width,
			Height:   p.Height,
			Comments: views,
		})
	}

	// the owner has now seen the work; refreshed on every view
	if rc.access.OwnSubmission {
		rc.submission.SeenByStudent = true
		rc.submission.UpdatedAt = time.Now().UTC()
		if rc.submission, err = svc.repo.UpdateSubmission(ctx, rc.submission); err != nil {
			return nil, errors.Wrap(err, "marking submission seen")
		}
	}
	return TabsResult{Pages: tabs}, nil
}

// sortPages applies a new page sequence. The requested order must be a
// permutation of exactly the submission's page ids; anything else leaves
// the stored order untouched.
func (svc *service) sortPages(ctx context.Context, rc *requestContext) (interface{}, error) {
	pages, err := svc.repo.ListPages(ctx, rc.submission.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing pages")
	}
	if len(rc.req.NewOrder) != len(pages) {
		return nil, ErrInvalidOperation
	}
	known := make(map[int]bool, len(pages))
	for _, p := range pages {
		known[p.ID] = true
	}
	seen := make(map[int]bool, len(rc.req.NewOrder))
	for _, id := range rc.req.NewOrder {
		if !known[id] || seen[id] {
			return nil, ErrInvalidOperation
		}
		seen[id] = true
	}

	if err = svc.repo.ReorderPages(ctx, rc.submission.ID, rc.req.NewOrder); err != nil {
		return nil, errors.Wrap(err, "reordering pages")
	}
	return SortResult{NewOrder: rc.req.NewOrder}, nil
}

// rotatePage rotates the requested page 90° clockwise: the renderer
// regenerates both image variants, then the new state is persisted. A
// renderer response without an image URL is treated as an upstream failure
// and nothing is persisted.
func (svc *service) rotatePage(ctx context.Context, rc *requestContext) (interface{}, error) {
	page, err := svc.repo.GetPage(ctx, rc.submission.ID, rc.req.PageNo)
	if err != nil {
		return nil, err
	}

	rotated, err := svc.images.Rotate(ctx, page)
	if err != nil {
		return nil, errors.Wrap(err, "rendering rotated page")
	}
	if rotated.ImageURL == "" {
		return nil, ErrEmptyResult
	}

	page.ImageURL = rotated.ImageURL
	page.AnonymousImageURL = rotated.AnonymousImageURL
	page.Width = rotated.Width
	page.Height = rotated.Height
	page.Rotation = (page.Rotation + 90) % 360
	if page, err = svc.repo.UpdatePage(ctx, page); err != nil {
		return nil, errors.Wrap(err, "persisting rotated page")
	}
	return RotateResult{
		PageNo:            page.PageNo,
		ImageURL:          page.ImageURL,
		AnonymousImageURL: page.AnonymousImageURL,
		Width:             page.Width,
		Height:            page.Height,
	}, nil
}
