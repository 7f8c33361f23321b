package state

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokinpui/mermaidcheck/internal/fs"
	"github.com/sokinpui/mermaidcheck/model"
)

const (
	stateDirName  = ".mermaidcheck"
	stateFileName = "state.json"
	HistoryDir    = "history"
)

// Change is one document rewritten by a repair run.
type Change struct {
	Path   string
	Before []byte
	After  []byte
}

// Operation records a rewritten file and where its copies live.
type Operation struct {
	Path       string `json:"path"`
	BeforeHash string `json:"before_hash"`
	AfterHash  string `json:"after_hash"`
	BeforeCopy string `json:"before_copy"`
	AfterCopy  string `json:"after_copy"`
}

// HistoryEntry represents one write run of the tool.
type HistoryEntry struct {
	ID         string      `json:"id"`
	Timestamp  int64       `json:"timestamp"`
	Operations []Operation `json:"operations"`
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry `json:"history"`
	CurrentIndex int            `json:"current_index"`
}

// Manager handles the lifecycle of the state file.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
	now       func() time.Time
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates a state manager rooted at the enclosing git repository, or the
// working directory outside of one.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return NewAt(rootDir)
}

// NewAt creates and loads a state manager whose state lives under rootDir.
func NewAt(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
		now:       time.Now,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1, History: []HistoryEntry{}}

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("invalid state file: %w", err)
	}
	if st.CurrentIndex < -1 || st.CurrentIndex >= len(st.History) {
		return fmt.Errorf("invalid state file: current index %d out of range", st.CurrentIndex)
	}
	m.state = &st
	return nil
}

func (m *Manager) save() error {
	if err := os.MkdirAll(m.StateDir, 0755); err != nil {
		return fmt.Errorf("could not create state directory: %w", err)
	}
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(m.statePath, data)
}

// Record saves copies of every change and appends them as a new history
// entry. Entries that were undone are discarded.
func (m *Manager) Record(changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	id := uuid.NewString()
	entryDir := filepath.Join(m.StateDir, HistoryDir, id)

	ops := make([]Operation, 0, len(changes))
	for _, c := range changes {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			return fmt.Errorf("could not resolve '%s': %w", c.Path, err)
		}
		name := fs.HashBytes([]byte(abs))[:16]
		op := Operation{
			Path:       abs,
			BeforeHash: fs.HashBytes(c.Before),
			AfterHash:  fs.HashBytes(c.After),
			BeforeCopy: filepath.Join(entryDir, "before", name),
			AfterCopy:  filepath.Join(entryDir, "after", name),
		}
		if err := writeCopy(op.BeforeCopy, c.Before); err != nil {
			return err
		}
		if err := writeCopy(op.AfterCopy, c.After); err != nil {
			return err
		}
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{
		ID:         id,
		Timestamp:  m.now().UTC().Unix(),
		Operations: ops,
	})
	m.state.CurrentIndex++
	return m.save()
}

func writeCopy(path string, data []byte) error {
	if err := fs.WriteFileAll(path, data); err != nil {
		return fmt.Errorf("could not save history copy: %w", err)
	}
	return nil
}

// Undo restores the files of the most recent entry to their content before
// the repair. Files edited since are left alone and reported as failed.
func (m *Manager) Undo() (model.Summary, error) {
	if m.state.CurrentIndex < 0 {
		return model.Summary{Message: "No operation to undo."}, nil
	}
	entry := m.state.History[m.state.CurrentIndex]
	summary := restore(entry.Operations, func(op Operation) (string, string) {
		return op.AfterHash, op.BeforeCopy
	})
	summary.Message = "Undid last repair."

	m.state.CurrentIndex--
	if err := m.save(); err != nil {
		return summary, err
	}
	return summary, nil
}

// Redo re-applies the entry after the current one.
func (m *Manager) Redo() (model.Summary, error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return model.Summary{Message: "No operation to redo."}, nil
	}
	entry := m.state.History[next]
	summary := restore(entry.Operations, func(op Operation) (string, string) {
		return op.BeforeHash, op.AfterCopy
	})
	summary.Message = "Redid last undone repair."

	m.state.CurrentIndex = next
	if err := m.save(); err != nil {
		return summary, err
	}
	return summary, nil
}

// restore writes the copy chosen by pick over each file whose current content
// hash matches the expected one.
func restore(ops []Operation, pick func(Operation) (expectHash, copyPath string)) model.Summary {
	var summary model.Summary
	for _, op := range ops {
		expect, copyPath := pick(op)
		current, err := fs.GetFileSHA256(op.Path)
		if err != nil || current != expect {
			summary.Failed = append(summary.Failed, op.Path)
			continue
		}
		data, err := fs.ReadFile(copyPath)
		if err != nil {
			summary.Failed = append(summary.Failed, op.Path)
			continue
		}
		if err := fs.WriteFileAtomic(op.Path, data); err != nil {
			summary.Failed = append(summary.Failed, op.Path)
			continue
		}
		summary.Restored = append(summary.Restored, op.Path)
	}
	return summary
}
