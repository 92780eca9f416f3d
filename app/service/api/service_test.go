package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wingman/app/config"
	"wingman/app/model"
	"wingman/app/service/conversation"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	openerText string
	openerErr  error
	replyText  string
	replyErr   error

	lastProfile  model.MatchProfile
	lastIncoming []model.Message
}

func (f *fakeGenerator) GenerateOpener(_ context.Context, profile model.MatchProfile) (string, error) {
	f.lastProfile = profile
	return f.openerText, f.openerErr
}

func (f *fakeGenerator) GenerateReply(_ context.Context, profile model.MatchProfile, incoming []model.Message) (string, error) {
	f.lastProfile = profile
	f.lastIncoming = incoming
	return f.replyText, f.replyErr
}

func newTestAPI(engine Generator) *Service {
	return newService(&config.Config{}, engine)
}

func postJSON(t *testing.T, s *Service, path string, body any) (*http.Response, []byte) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, raw
}

func TestHealth(t *testing.T) {
	s := newTestAPI(&fakeGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOpenerOK(t *testing.T) {
	engine := &fakeGenerator{openerText: "Hey Alex!"}
	s := newTestAPI(engine)

	resp, raw := postJSON(t, s, "/v1/generate/opener", OpenerRequest{
		Profile: model.MatchProfile{MatchID: "m1", Name: "Alex"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body MessageResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, "Hey Alex!", body.Message)
	require.Equal(t, "m1", engine.lastProfile.MatchID)
}

func TestReplyOK(t *testing.T) {
	engine := &fakeGenerator{replyText: "sounds fun!"}
	s := newTestAPI(engine)

	resp, raw := postJSON(t, s, "/v1/generate/reply", ReplyRequest{
		Profile:      model.MatchProfile{MatchID: "m1"},
		LastMessages: []model.Message{{Text: "you free this week?", IsReceived: true}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body MessageResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, "sounds fun!", body.Message)
	require.Len(t, engine.lastIncoming, 1)
}

func TestReplyMessagesFallBackToProfile(t *testing.T) {
	engine := &fakeGenerator{replyText: "ok"}
	s := newTestAPI(engine)

	resp, _ := postJSON(t, s, "/v1/generate/reply", ReplyRequest{
		Profile: model.MatchProfile{
			MatchID:      "m1",
			LastMessages: []model.Message{{Text: "hi from profile", IsReceived: true}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, engine.lastIncoming, 1)
	require.Equal(t, "hi from profile", engine.lastIncoming[0].Text)
}

func TestInvalidRequestIs400(t *testing.T) {
	engine := &fakeGenerator{
		replyErr: fmt.Errorf("%w: at least one incoming message is required", conversation.ErrInvalidRequest),
	}
	s := newTestAPI(engine)

	resp, raw := postJSON(t, s, "/v1/generate/reply", ReplyRequest{
		Profile: model.MatchProfile{MatchID: "m1"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Contains(t, body.Error, "incoming message")
}

func TestMatchReadyIs409(t *testing.T) {
	since := time.Date(2025, 6, 3, 20, 0, 0, 0, time.UTC)
	engine := &fakeGenerator{
		replyErr: &conversation.MatchReadyError{MatchID: "m1", Name: "Sarah", Since: since},
	}
	s := newTestAPI(engine)

	resp, raw := postJSON(t, s, "/v1/generate/reply", ReplyRequest{
		Profile:      model.MatchProfile{MatchID: "m1"},
		LastMessages: []model.Message{{Text: "so, saturday?", IsReceived: true}},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body MatchReadyResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, "Sarah", body.Name)
	require.True(t, since.Equal(body.ReadinessTimestamp))
}

func TestGenerationUnavailableIs503(t *testing.T) {
	engine := &fakeGenerator{
		openerErr: fmt.Errorf("%w: rate limited", conversation.ErrGenerationUnavailable),
	}
	s := newTestAPI(engine)

	resp, _ := postJSON(t, s, "/v1/generate/opener", OpenerRequest{
		Profile: model.MatchProfile{MatchID: "m1"},
	})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestClassificationUnavailableIs500(t *testing.T) {
	engine := &fakeGenerator{
		replyErr: fmt.Errorf("%w: upstream timeout", conversation.ErrClassificationUnavailable),
	}
	s := newTestAPI(engine)

	resp, _ := postJSON(t, s, "/v1/generate/reply", ReplyRequest{
		Profile:      model.MatchProfile{MatchID: "m1"},
		LastMessages: []model.Message{{Text: "hm", IsReceived: true}},
	})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMalformedBodyIs400(t *testing.T) {
	s := newTestAPI(&fakeGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/v1/generate/opener", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
