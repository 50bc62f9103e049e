package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

type fakeChat struct {
	messages []llms.MessageContent
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeChat) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	return f.resp, f.err
}

type fakeEmbeddings struct {
	calls int
	out   [][]float32
	err   error
}

func (f *fakeEmbeddings) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	return f.out, f.err
}

func TestGenerateContentSendsSystemAndHumanMessages(t *testing.T) {
	chat := &fakeChat{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: " Score: 8 "}}}}
	c := &Client{chat: chat, model: "gpt-test", logger: zap.NewNop()}

	out, err := c.GenerateContent(context.Background(), "You are an expert career advisor.", "rate this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Score: 8" {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(chat.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(chat.messages))
	}
	if chat.messages[0].Role != llms.ChatMessageTypeSystem || chat.messages[1].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("unexpected roles: %s, %s", chat.messages[0].Role, chat.messages[1].Role)
	}
}

func TestGenerateContentErrors(t *testing.T) {
	tests := []struct {
		name string
		chat *fakeChat
	}{
		{name: "api error", chat: &fakeChat{err: errors.New("boom")}},
		{name: "no choices", chat: &fakeChat{resp: &llms.ContentResponse{}}},
		{name: "blank content", chat: &fakeChat{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "  "}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{chat: tt.chat, logger: zap.NewNop()}
			if _, err := c.GenerateContent(context.Background(), "", "msg"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEmbed(t *testing.T) {
	emb := &fakeEmbeddings{out: [][]float32{{1, 2}}}
	c := &Client{embeddings: emb, embeddingModel: "text-embedding-3-large", logger: zap.NewNop()}

	vec, err := c.Embedder().Embed(context.Background(), "resume")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if c.Embedder().Model() != "text-embedding-3-large" {
		t.Fatalf("unexpected embedding model %q", c.Embedder().Model())
	}

	empty := &Client{embeddings: &fakeEmbeddings{}, logger: zap.NewNop()}
	if _, err := empty.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty embedding result")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error without api key")
	}
}
