// Package storage persists conversations as one JSON file each under the
// data directory. Files are small and rewritten whole on every mutation; the
// store is safe for concurrent use within a single process.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/quorum/internal/council"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/logging"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation. User messages carry Content only;
// assistant messages carry the full per-stage record of a council run.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`

	Stage1   []council.CandidateResponse `json:"stage1,omitempty"`
	Stage2   []council.JudgeRanking      `json:"stage2,omitempty"`
	Stage3   *council.SynthesisResult    `json:"stage3,omitempty"`
	Metadata *council.Metadata           `json:"metadata,omitempty"`
}

// Conversation is the unit of persistence.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// Summary is the listing view of a conversation, without its messages.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// Store reads and writes conversation files.
type Store struct {
	dir    string
	logger *logging.Logger

	mu sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first write.
func NewStore(dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{dir: dir, logger: logger}
}

// Path returns the file a conversation id maps to.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create makes a new conversation with a generated id and writes it to disk.
func (s *Store) Create(title string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
		Messages:  []Message{},
	}
	if err := s.write(conv); err != nil {
		return nil, err
	}
	s.logger.WithConversation(conv.ID).Info("conversation created")
	return conv, nil
}

// Get loads a conversation by id.
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// List returns summaries of every readable conversation, newest first. Files
// that are not valid conversation JSON are skipped, not fatal.
func (s *Store) List() ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		conv, err := s.read(id)
		if err != nil {
			s.logger.WithConversation(id).Warn("skipping unreadable conversation file", "error", err.Error())
			continue
		}
		summaries = append(summaries, Summary{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			MessageCount: len(conv.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Delete removes a conversation file.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("conversation", id)
		}
		return fmt.Errorf("deleting conversation: %w", err)
	}
	s.logger.WithConversation(id).Info("conversation deleted")
	return nil
}

// AddUserMessage appends a user message to an existing conversation.
func (s *Store) AddUserMessage(id, content string) error {
	return s.mutate(id, func(conv *Conversation) {
		conv.Messages = append(conv.Messages, Message{Role: RoleUser, Content: content})
	})
}

// AddAssistantMessage appends the record of a completed council run.
func (s *Store) AddAssistantMessage(id string, result *council.Result) error {
	return s.mutate(id, func(conv *Conversation) {
		synthesis := result.Synthesis
		meta := result.Metadata
		conv.Messages = append(conv.Messages, Message{
			Role:     RoleAssistant,
			Content:  synthesis.Response,
			Stage1:   result.Candidates,
			Stage2:   result.Rankings,
			Stage3:   &synthesis,
			Metadata: &meta,
		})
	})
}

// UpdateTitle sets a conversation's title.
func (s *Store) UpdateTitle(id, title string) error {
	return s.mutate(id, func(conv *Conversation) {
		conv.Title = title
	})
}

// mutate loads a conversation, applies fn, and writes it back.
func (s *Store) mutate(id string, fn func(*Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.read(id)
	if err != nil {
		return err
	}
	fn(conv)
	return s.write(conv)
}

func (s *Store) read(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("conversation", id)
		}
		return nil, fmt.Errorf("reading conversation %s: %w", id, err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrConversationCorrupted, id, err)
	}
	return &conv, nil
}

func (s *Store) write(conv *Conversation) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", conv.ID, err)
	}
	if err := os.WriteFile(s.Path(conv.ID), data, 0o600); err != nil {
		return fmt.Errorf("writing conversation %s: %w", conv.ID, err)
	}
	return nil
}
