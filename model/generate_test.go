package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generationServer(t *testing.T, fragments []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		enc := json.NewEncoder(w)
		for i, frag := range fragments {
			enc.Encode(GenerateResponse{Response: frag, Done: i == len(fragments)-1})
		}
	}))
}

func TestStream_ForwardsFragmentsInOrder(t *testing.T) {
	srv := generationServer(t, []string{"Le ", "chat ", "dort."})
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "test-model")

	var got []string
	err := g.Stream(context.Background(), "question", func(frag string) error {
		got = append(got, frag)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Le ", "chat ", "dort."}, got)
}

func TestStream_EmitErrorAborts(t *testing.T) {
	srv := generationServer(t, []string{"a", "b", "c"})
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "test-model")

	var got []string
	err := g.Stream(context.Background(), "question", func(frag string) error {
		got = append(got, frag)
		if len(got) == 2 {
			return fmt.Errorf("client gone")
		}
		return nil
	})

	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestStream_ServerErrorFailsBeforeFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "test-model")

	emitted := 0
	err := g.Stream(context.Background(), "question", func(string) error {
		emitted++
		return nil
	})

	assert.Error(t, err)
	assert.Equal(t, 0, emitted)
}

func TestGenerate_CollectsFullAnswer(t *testing.T) {
	srv := generationServer(t, []string{"Le chat", " dort."})
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "test-model")

	out, err := g.Generate(context.Background(), "question")

	require.NoError(t, err)
	assert.Equal(t, "Le chat dort.", out)
}
