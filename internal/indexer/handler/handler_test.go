package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUpdater struct {
	scopes []index.Scope
	err    error
}

func (s *stubUpdater) UpdateIndex(_ context.Context, scope index.Scope) (*indexer.UpdateResult, error) {
	s.scopes = append(s.scopes, scope)
	if s.err != nil {
		return nil, s.err
	}
	return &indexer.UpdateResult{Scope: scope, Documents: len(scope.IDs)}, nil
}

type capture struct {
	events []kafka.Event
	err    error
}

func (c *capture) Publish(_ context.Context, e kafka.Event) error {
	c.events = append(c.events, e)
	return c.err
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/index", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Reindex(rec, req)
	return rec
}

func TestReindexSync(t *testing.T) {
	up := &stubUpdater{}
	var notified []string
	h := New(up, nil, func(_ context.Context, res *indexer.UpdateResult) {
		notified = append(notified, res.Scope.Kind)
	})

	rec := post(h, `{"kind":"post","namespace":"blog","ids":["1","2"],"async":true}`)
	require.Equal(t, http.StatusOK, rec.Code, "async without a queue runs inline")
	require.Len(t, up.scopes, 1)
	assert.Equal(t, index.Scope{Kind: "post", Namespace: "blog", IDs: []string{"1", "2"}}, up.scopes[0])
	assert.Equal(t, []string{"post"}, notified)

	var res indexer.UpdateResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 2, res.Documents)
}

func TestReindexAllUsesEmptyScope(t *testing.T) {
	up := &stubUpdater{}
	rec := post(New(up, nil, nil), `{"kind":"post","all":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, up.scopes[0].IsAll())
}

func TestReindexAsyncQueues(t *testing.T) {
	up := &stubUpdater{}
	q := &capture{}
	rec := post(New(up, q, nil), `{"kind":"post","ids":["7"],"async":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, up.scopes)
	require.Len(t, q.events, 1)
	assert.Equal(t, "post", q.events[0].Key)
	event := q.events[0].Value.(consumer.ReindexEvent)
	assert.Equal(t, []string{"7"}, event.IDs)

	q.err = errors.New("broker down")
	rec = post(New(up, q, nil), `{"kind":"post","ids":["7"],"async":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReindexValidation(t *testing.T) {
	h := New(&stubUpdater{}, nil, nil)
	cases := map[string]string{
		"not json":     `{`,
		"missing kind": `{"ids":["1"]}`,
		"no scope":     `{"kind":"post"}`,
		"both":         `{"kind":"post","all":true,"ids":["1"]}`,
		"empty id":     `{"kind":"post","ids":[""]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, post(h, body).Code)
		})
	}
}

func TestReindexMapsErrors(t *testing.T) {
	up := &stubUpdater{err: apperrors.New(apperrors.ErrUnknownKind, http.StatusNotFound, "no collection for kind \"x\"")}
	assert.Equal(t, http.StatusNotFound, post(New(up, nil, nil), `{"kind":"x","all":true}`).Code)

	up.err = apperrors.Unavailable("replace", errors.New("connection reset"))
	assert.Equal(t, http.StatusServiceUnavailable, post(New(up, nil, nil), `{"kind":"post","all":true}`).Code)
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := ValidateReindexRequest(&ReindexRequest{})
	require.Error(t, err)
	assert.Equal(t, "ids:ids are required unless all is set; kind:kind is required", err.Error())
}
