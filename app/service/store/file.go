package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wingman/app/model"
)

const maxRecordSize = 4 << 20

// FileStore keeps one JSON line per conversation. Saves rewrite the file to a
// temp sibling and rename it into place, so a crash mid-write leaves the last
// complete version intact.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, unavailable("create store directory", err)
	}

	return &FileStore{path: path}, nil
}

func (s *FileStore) LoadAll(ctx context.Context) (map[string]*model.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _, err := s.readRecords()
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (s *FileStore) Save(ctx context.Context, state *model.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, order, err := s.readRecords()
	if err != nil {
		return err
	}

	next := state.Clone()

	if existing, ok := records[state.MatchID]; ok {
		next.Messages = mergeMessages(existing.Messages, next.Messages)
	} else {
		order = append(order, state.MatchID)
	}

	records[state.MatchID] = next

	return s.writeRecords(records, order)
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) Shutdown() error {
	return s.Close()
}

func (s *FileStore) readRecords() (map[string]*model.ConversationState, []string, error) {
	records := make(map[string]*model.ConversationState)
	var order []string

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, order, nil
		}

		return nil, nil, unavailable("open store file", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var state model.ConversationState
		if err = json.Unmarshal([]byte(line), &state); err != nil {
			return nil, nil, unavailable("parse store record", err)
		}

		records[state.MatchID] = &state
		order = append(order, state.MatchID)
	}

	if err = scanner.Err(); err != nil {
		return nil, nil, unavailable("read store file", err)
	}

	return records, order, nil
}

func (s *FileStore) writeRecords(records map[string]*model.ConversationState, order []string) error {
	tmpPath := s.path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return unavailable("create temp store file", err)
	}

	writer := bufio.NewWriter(file)

	for _, matchID := range order {
		data, err := json.Marshal(records[matchID])
		if err != nil {
			file.Close()
			return unavailable("marshal store record", err)
		}

		if _, err = writer.WriteString(string(data) + "\n"); err != nil {
			file.Close()
			return unavailable("write store record", err)
		}
	}

	if err = writer.Flush(); err != nil {
		file.Close()
		return unavailable("flush store file", err)
	}

	if err = file.Sync(); err != nil {
		file.Close()
		return unavailable("sync store file", err)
	}

	if err = file.Close(); err != nil {
		return unavailable("close store file", err)
	}

	if err = os.Rename(tmpPath, s.path); err != nil {
		return unavailable("replace store file", err)
	}

	return nil
}
