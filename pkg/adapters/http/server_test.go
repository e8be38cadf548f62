package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/taleweave"
	api "github.com/aretw0/taleweave/pkg/adapters/http"
	"github.com/aretw0/taleweave/pkg/adapters/memory"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/ports"
	"github.com/aretw0/taleweave/pkg/worldbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, gen ports.Generator) (*httptest.Server, *taleweave.Engine) {
	t.Helper()
	eng, err := taleweave.New(memory.NewStore(),
		taleweave.WithGenerator(gen),
		taleweave.WithSummaryRefresh(false),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewHandler(eng, api.WithEngineServices(eng)))
	t.Cleanup(srv.Close)
	return srv, eng
}

func replyWith(text string) ports.Generator {
	return ports.GeneratorFunc(func(ctx context.Context, system, user string, cfg domain.RuntimeConfig) (string, error) {
		return text, nil
	})
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func pathIDs(p api.PathResponse) []string {
	out := make([]string, len(p.Path))
	for i, n := range p.Path {
		out[i] = n.NodeID
	}
	return out
}

func TestTurnAPI_Flow(t *testing.T) {
	srv, _ := newServer(t, replyWith("<screen>The door creaks.</screen><next_prompts>- Enter\n- Leave</next_prompts>"))

	resp := do(t, http.MethodPost, srv.URL+"/characters", domain.Character{ID: "mira", Name: "Mira", FirstMessage: "Hi, {{user}}."})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/characters/mira/dialogue", api.InitializeRequest{
		RuntimeConfig: domain.RuntimeConfig{UserName: "Ann"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[map[string]string](t, resp)["node_id"]
	require.NotEmpty(t, first)

	resp = do(t, http.MethodPost, srv.URL+"/characters/mira/turns", api.TurnRequest{Message: "knock", NodeID: "n2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	turn := decode[taleweave.TurnResult](t, resp)
	assert.Equal(t, "n2", turn.NodeID)
	assert.Equal(t, first, turn.ParentNodeID)
	assert.Equal(t, "The door creaks.", turn.ScreenContent)
	assert.Equal(t, []string{"Enter", "Leave"}, turn.NextPrompts)

	resp = do(t, http.MethodGet, srv.URL+"/characters/mira/path", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{first, "n2"}, pathIDs(decode[api.PathResponse](t, resp)))

	resp = do(t, http.MethodPut, srv.URL+"/characters/mira/current", api.SwitchRequest{NodeID: first})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{first}, pathIDs(decode[api.PathResponse](t, resp)))

	resp = do(t, http.MethodPatch, srv.URL+"/characters/mira/nodes/n2", api.EditRequest{Content: "Silence."})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Silence.", decode[domain.DialogueNode](t, resp).AssistantResponse)

	resp = do(t, http.MethodDelete, srv.URL+"/characters/mira/nodes/"+first+"?policy=cascade", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[api.PathResponse](t, resp).Path)

	resp = do(t, http.MethodGet, srv.URL+"/characters/mira/tree", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tree := decode[domain.DialogueTree](t, resp)
	assert.Empty(t, tree.Nodes)
	assert.Equal(t, domain.RootNodeID, tree.CurrentNodeID)
}

func TestTurnAPI_ErrorStatus(t *testing.T) {
	fail := ports.GeneratorFunc(func(ctx context.Context, system, user string, cfg domain.RuntimeConfig) (string, error) {
		return "", errors.New("provider down")
	})
	srv, eng := newServer(t, fail)
	_, err := eng.Characters.Save(context.Background(), domain.Character{ID: "mira", Name: "Mira", FirstMessage: "Hi"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"unknown character", http.MethodPost, "/characters/ghost/turns", api.TurnRequest{Message: "hi"}, http.StatusNotFound, "not_found"},
		{"blank message", http.MethodPost, "/characters/mira/turns", api.TurnRequest{Message: "  "}, http.StatusBadRequest, "validation"},
		{"generation failure", http.MethodPost, "/characters/mira/turns", api.TurnRequest{Message: "hi"}, http.StatusBadGateway, "execution"},
		{"unknown policy", http.MethodDelete, "/characters/mira/nodes/x?policy=burn", nil, http.StatusBadRequest, "validation"},
		{"missing switch target", http.MethodPut, "/characters/mira/current", api.SwitchRequest{}, http.StatusBadRequest, "validation"},
		{"missing tree", http.MethodGet, "/characters/mira/tree", nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, decode[api.ErrorResponse](t, resp).Kind)
		})
	}

	t.Run("already initialized", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/characters/mira/dialogue", nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp = do(t, http.MethodPost, srv.URL+"/characters/mira/dialogue", nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&domain.ValidationError{Field: "x"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{&domain.ExecutionError{NodeID: "preset", Err: domain.ErrNotFound}, http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{&domain.ExecutionError{NodeID: "llm", Err: errors.New("boom")}, http.StatusBadGateway},
		{&domain.PersistenceError{Op: "read", Collection: "c", Err: errors.New("io")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := api.StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestResources(t *testing.T) {
	srv, eng := newServer(t, replyWith("<screen>ok</screen>"))

	resp := do(t, http.MethodPost, srv.URL+"/characters", domain.Character{Name: "Mira"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[domain.Character](t, resp).ID
	require.NotEmpty(t, id)

	resp = do(t, http.MethodPost, srv.URL+"/characters", domain.Character{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	t.Run("worldbook entry without flags matches", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/characters/"+id+"/worldbook", map[string]any{
			"content": "Dragons breathe fire",
			"keys":    []string{"dragon"},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		added := decode[domain.WorldBookEntry](t, resp)
		assert.True(t, added.Selective)
		assert.True(t, added.Enabled)

		entries, err := eng.WorldBooks.List(context.Background(), id)
		require.NoError(t, err)
		matched := worldbook.Match(entries, "a dragon appears", nil, 0)
		require.Len(t, matched, 1)
		assert.Equal(t, "Dragons breathe fire", matched[0].Content)

		resp = do(t, http.MethodDelete, fmt.Sprintf("%s/characters/%s/worldbook/%d", srv.URL, id, added.UID), nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("worldbook", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/characters/"+id+"/worldbook", domain.WorldBookEntry{Content: "Lore", Keys: []string{"castle"}, Enabled: true})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		uid := decode[domain.WorldBookEntry](t, resp).UID

		resp = do(t, http.MethodGet, srv.URL+"/characters/"+id+"/worldbook", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[[]domain.WorldBookEntry](t, resp), 1)

		resp = do(t, http.MethodDelete, fmt.Sprintf("%s/characters/%s/worldbook/%d", srv.URL, id, uid), nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp = do(t, http.MethodDelete, fmt.Sprintf("%s/characters/%s/worldbook/%d", srv.URL, id, uid), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp = do(t, http.MethodDelete, srv.URL+"/characters/"+id+"/worldbook/abc", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("regex", func(t *testing.T) {
		script := domain.RegexScript{ScriptKey: "s1", FindRegex: "/a/g", ReplaceString: "b"}
		resp := do(t, http.MethodPost, srv.URL+"/regex/"+id+"/scripts", script)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = do(t, http.MethodGet, srv.URL+"/regex/"+id+"/scripts", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []domain.RegexScript{script}, decode[[]domain.RegexScript](t, resp))

		resp = do(t, http.MethodPut, srv.URL+"/regex/"+id+"/settings", domain.RegexSettings{Enabled: false})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp = do(t, http.MethodGet, srv.URL+"/regex/"+id+"/settings", nil)
		assert.False(t, decode[domain.RegexSettings](t, resp).Enabled)

		resp = do(t, http.MethodDelete, srv.URL+"/regex/"+id+"/scripts/s1", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("avatar", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\nrest")
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/characters/"+id+"/avatar", bytes.NewReader(png))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = do(t, http.MethodGet, srv.URL+"/characters/"+id+"/avatar", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	})

	resp = do(t, http.MethodDelete, srv.URL+"/characters/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, srv.URL+"/characters/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubscribeEvents(t *testing.T) {
	srv, eng := newServer(t, replyWith("<screen>Rain.</screen>"))
	_, err := eng.Characters.Save(context.Background(), domain.Character{ID: "mira", Name: "Mira"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/characters/mira/events", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	reader := bufio.NewReader(stream.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	resp := do(t, http.MethodPost, srv.URL+"/characters/mira/turns", api.TurnRequest{Message: "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	assert.Contains(t, line, `"event":"turn"`)
	assert.Contains(t, line, `"screen_content":"Rain."`)
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := api.NewStreamManager()
	ch, cancel := sm.Subscribe("mira")
	assert.Equal(t, 1, sm.Subscribers("mira"))

	sm.Broadcast("mira", "hello")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("mira"))
	_, open := <-ch
	assert.False(t, open)
}

func TestCORSPreflight(t *testing.T) {
	h := api.NewHandler(nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/characters/x/turns", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
