package service

import (
	"context"
	"testing"

	"github.com/nexsite/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadSubmitForcesNewStatus(t *testing.T) {
	st := newSQLStore(t)
	svc := NewLeadService(st, nil, nil, 0)

	created := svc.Submit(context.Background(), db.LeadRequest{
		Name:         "Ada",
		Email:        "ada@example.com",
		Phone:        "555",
		BusinessName: "Analytical",
		Industry:     "Technology",
		Message:      "Automate invoices",
		Status:       db.LeadStatusCompleted,
	})
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, db.LeadStatusNew, created.Status)
}

func TestLeadListDistinguishesFailureFromEmpty(t *testing.T) {
	ctx := context.Background()

	leads, ok := NewLeadService(&fakeStore{}, nil, nil, 0).List(ctx)
	assert.True(t, ok)
	assert.NotNil(t, leads)
	assert.Empty(t, leads)

	leads, ok = NewLeadService(&fakeStore{err: errStoreDown}, nil, nil, 0).List(ctx)
	assert.False(t, ok)
	assert.Empty(t, leads)
}

func TestLeadServiceSwallowsFailures(t *testing.T) {
	fake := &fakeStore{err: errStoreDown}
	svc := NewLeadService(fake, nil, nil, 0)
	ctx := context.Background()

	assert.Nil(t, svc.Submit(ctx, db.LeadRequest{Name: "x"}))
	assert.False(t, svc.SetStatus(ctx, "id", db.LeadStatusPending))
	assert.Equal(t, 2, fake.calls)
}

func TestLeadSetStatusAgainstSQLStore(t *testing.T) {
	st := newSQLStore(t)
	svc := NewLeadService(st, nil, nil, 0)
	ctx := context.Background()

	created := svc.Submit(ctx, db.LeadRequest{Name: "A", Email: "a@b.c", Phone: "1", BusinessName: "B", Industry: "Retail", Message: "m"})
	require.NotNil(t, created)

	assert.True(t, svc.SetStatus(ctx, created.ID, db.LeadStatusRejected))
	assert.False(t, svc.SetStatus(ctx, "missing", db.LeadStatusRejected))

	leads, ok := svc.List(ctx)
	require.True(t, ok)
	require.Len(t, leads, 1)
	assert.Equal(t, db.LeadStatusRejected, leads[0].Status)
}
