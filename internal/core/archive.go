package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRunID is returned for ids that are not run identifiers.
var ErrInvalidRunID = errors.New("invalid run id")

// Run is an archived operation envelope.
type Run struct {
	ID        string          `json:"id"`
	Operation string          `json:"operation"`
	Target    string          `json:"target"`
	Success   bool            `json:"success"`
	Timestamp time.Time       `json:"timestamp"`
	Envelope  json.RawMessage `json:"envelope"`
}

// Archive persists run envelopes as runs/<id>.json.
type Archive struct {
	storage Storage
}

func NewArchive(storage Storage) *Archive {
	return &Archive{
		storage: storage,
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

func runFile(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunID, id)
	}
	return fmt.Sprintf("runs/%s.json", id), nil
}

// Save stores run, assigning an id and timestamp when missing.
func (a *Archive) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}

	filename, err := runFile(run.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}
	return a.storage.Save(ctx, filename, data)
}

func (a *Archive) Load(ctx context.Context, id string) (*Run, error) {
	filename, err := runFile(id)
	if err != nil {
		return nil, err
	}

	data, err := a.storage.Load(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshaling run: %w", err)
	}
	return &run, nil
}

// List returns archived runs, newest first. Unreadable entries are skipped.
func (a *Archive) List(ctx context.Context) ([]*Run, error) {
	files, err := a.storage.List(ctx, "runs/*.json")
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]*Run, 0, len(files))
	for _, file := range files {
		data, err := a.storage.Load(ctx, file)
		if err != nil {
			continue
		}

		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			continue
		}
		runs = append(runs, &run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (a *Archive) Delete(ctx context.Context, id string) error {
	filename, err := runFile(id)
	if err != nil {
		return err
	}
	return a.storage.Delete(ctx, filename)
}
