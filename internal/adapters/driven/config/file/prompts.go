package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// ErrInvalidPrompt is returned for a prompt file that cannot be used as a template.
var ErrInvalidPrompt = errors.New("invalid prompt")

// answerPrompt seeds answer_system.txt.
const answerPrompt = `You answer questions about a single document.
Use only the excerpts below. They are the passages most similar to the question,
most relevant first, separated by blank lines.
If the excerpts do not contain the answer, say you cannot find it in the document.
Do not invent facts, names or numbers.

Excerpts:
%s`

var seeds = map[string]string{
	driven.PromptAnswerSystem: answerPrompt,
}

// PromptStore reads prompt templates from <dir>/<name>.txt.
//
// A missing file is created from the built-in template on first use so
// there is something to edit. Edits are picked up on the next Load,
// which makes a long-running MCP server see them without a restart.
type PromptStore struct {
	dir string

	mu     sync.Mutex
	loaded map[string]promptFile
}

type promptFile struct {
	modTime time.Time
	size    int64
	text    string
}

// NewPromptStore creates a prompt store rooted at dir, or ~/.askdoc/prompts
// when dir is empty. Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".askdoc", "prompts")
	}
	return &PromptStore{dir: dir, loaded: make(map[string]promptFile)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template stored for name.
func (s *PromptStore) Load(name string) (string, error) {
	seed, known := seeds[name]
	if !known {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	path := filepath.Join(s.dir, name+".txt")

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		// A read-only home still gets the built-in template.
		_ = s.seed(path, seed)
		return seed, nil
	}
	if err != nil {
		return "", fmt.Errorf("stat prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.loaded[name]; ok && f.modTime.Equal(info.ModTime()) && f.size == info.Size() {
		return f.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))
	if err := checkTemplate(text); err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrInvalidPrompt, path, err)
	}
	s.loaded[name] = promptFile{modTime: info.ModTime(), size: info.Size(), text: text}
	return text, nil
}

func (s *PromptStore) seed(path, content string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	_, err = f.WriteString(content + "\n")
	return errors.Join(err, f.Close())
}

// checkTemplate requires exactly one %s and no other verbs. %% is allowed.
func checkTemplate(text string) error {
	rest := strings.ReplaceAll(text, "%%", "")
	switch n := strings.Count(rest, "%"); {
	case n == 0:
		return errors.New("missing %s placeholder for the excerpts")
	case n > 1 || !strings.Contains(rest, "%s"):
		return errors.New("only one %s verb is allowed; write %% for a literal percent sign")
	}
	return nil
}
