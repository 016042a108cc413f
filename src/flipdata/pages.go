package flipdata

import (
	"context"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

type Pages struct {
	*deps
}

var (
	pageListSchema = schema.Schema{
		{Key: "minilesson_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}.With(schema.Paging(store.PageSortKeys, models.PageProjectable...)...)

	pageGetSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference},
		{Key: "projection", Type: schema.Object, Filter: schema.ProjectionMask, Fields: schema.Exclude(models.PageProjectable...)},
	}

	pageAddSchema = schema.Schema{
		{Key: "minilesson_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "title", Type: schema.String, Filter: schema.Trim, Required: true},
		{Key: "resource", Type: schema.String, Filter: schema.Trim},
	}
)

var errPageNotFound = fail.NotFoundf("Page not found.")

// List returns the pages of a minilesson in order.
func (r *Pages) List(ctx context.Context, data schema.Data) (pages []*models.Page, total int, err error) {
	defer observe("page", "list", &err)

	in, err := schema.Validate(data, pageListSchema)
	if err != nil {
		return nil, 0, err
	}
	minilessonID := in.ID("minilesson_id")

	if _, _, err := r.repos.Minilessons.scope(ctx, minilessonID, in.ID("user_id")); err != nil {
		return nil, 0, err
	}

	q := store.PageQuery{
		MinilessonID: &minilessonID,
		Sort:         in.Sort("sort", schema.Asc("position")),
		Page:         store.Page{Offset: in.Int("offset"), Limit: in.Int("limit")},
	}
	total, err = r.store.CountPages(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to count pages")
	}
	pages, err = r.store.FindPages(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to fetch pages")
	}

	p := in.Projection("projection")
	for _, page := range pages {
		page.Project(p)
	}
	return pages, total, nil
}

func (r *Pages) Get(ctx context.Context, data schema.Data) (page *models.Page, err error) {
	defer observe("page", "get", &err)

	in, err := schema.Validate(data, pageGetSchema)
	if err != nil {
		return nil, err
	}

	if userID := in.OptID("user_id"); userID != nil {
		page, _, err = r.scope(ctx, in.ID("id"), *userID)
	} else {
		page, err = r.find(ctx, in.ID("id"))
	}
	if err != nil {
		return nil, err
	}

	page.Project(in.Projection("projection"))
	return page, nil
}

func (r *Pages) find(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	p, err := store.FindOne(r.store.FindPages(ctx, store.PageQuery{IDs: []uuid.UUID{id}}))
	if isNotFound(err) {
		return nil, errPageNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch page")
	}
	return p, nil
}

// Pages under a minilesson the user cannot see are not found either.
func (r *Pages) scope(ctx context.Context, id, userID uuid.UUID) (*models.Page, access, error) {
	p, err := r.find(ctx, id)
	if err != nil {
		return nil, access{}, err
	}
	_, acc, err := r.repos.Minilessons.scope(ctx, p.MinilessonID, userID)
	if err != nil {
		return nil, access{}, err
	}
	return p, acc, nil
}

// Add appends a page to a minilesson.
func (r *Pages) Add(ctx context.Context, data schema.Data) (page *models.Page, err error) {
	defer observe("page", "add", &err)

	in, err := schema.Validate(data, pageAddSchema)
	if err != nil {
		return nil, err
	}
	minilessonID, userID := in.ID("minilesson_id"), in.ID("user_id")

	_, acc, err := r.repos.Minilessons.scope(ctx, minilessonID, userID)
	if err != nil {
		return nil, err
	}
	if !acc.IsTeacher() {
		return nil, fail.Forbiddenf("Only teachers can add pages to minilessons.")
	}

	p := &models.Page{
		ID:           uuid.New(),
		MinilessonID: minilessonID,
		Title:        in.String("title"),
		Resource:     in.OptString("resource"),
		Timestamps:   models.Timestamps{Created: r.now()},
	}
	if err := r.store.InsertPage(ctx, p); err != nil {
		if isNotFound(err) {
			return nil, errMinilessonNotFound
		}
		return nil, oops.New(err, "failed to insert page")
	}

	return r.Get(ctx, schema.Data{"id": p.ID, "user_id": userID})
}

// Remove deletes a page with its mcqs and their submissions.
func (r *Pages) Remove(ctx context.Context, data schema.Data) (page *models.Page, err error) {
	defer observe("page", "remove", &err)

	in, err := schema.Validate(data, scopedSchema)
	if err != nil {
		return nil, err
	}

	page, acc, err := r.scope(ctx, in.ID("id"), in.ID("user_id"))
	if err != nil {
		return nil, err
	}
	if !acc.IsTeacher() {
		return nil, fail.Forbiddenf("Only a teacher of the course may remove its pages.")
	}

	if _, err := r.store.DeletePage(ctx, page.ID); err != nil {
		return nil, oops.New(err, "failed to delete page")
	}
	return page, nil
}
