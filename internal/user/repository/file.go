package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ai-prompt-generator/admin/internal/user/domain"
)

var (
	// ErrDuplicateUser is returned when two entries share an id or username.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrEmptyDirectory is returned when the directory file defines no users.
	ErrEmptyDirectory = errors.New("user directory is empty")
)

// directoryFile is the on-disk layout of ADMIN_USERS_FILE.
type directoryFile struct {
	Users []*domain.User `yaml:"users"`
}

// FileRepository is an in-memory, read-only user directory loaded from YAML.
// Usernames are matched case-insensitively.
type FileRepository struct {
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
}

// LoadFile reads and validates the user directory at path.
func LoadFile(path string) (*FileRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read user directory: %w", err)
	}
	return Parse(data)
}

// Parse builds a FileRepository from YAML of the form:
//
//	users:
//	  - id: u-1
//	    username: alice
//	    password_hash: $2a$12$...
//	    role: admin
func Parse(data []byte) (*FileRepository, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse user directory: %w", err)
	}
	return New(f.Users)
}

// Marshal encodes users in the directory file layout read by Parse.
func Marshal(users []*domain.User) ([]byte, error) {
	return yaml.Marshal(directoryFile{Users: users})
}

// New returns a FileRepository holding users. Each user is validated; duplicates are rejected.
func New(users []*domain.User) (*FileRepository, error) {
	if len(users) == 0 {
		return nil, ErrEmptyDirectory
	}
	r := &FileRepository{
		byID:       make(map[string]*domain.User, len(users)),
		byUsername: make(map[string]*domain.User, len(users)),
	}
	for i, u := range users {
		if u == nil {
			return nil, fmt.Errorf("user %d: empty entry", i)
		}
		cp := *u
		if err := cp.Validate(); err != nil {
			return nil, fmt.Errorf("user %d (%s): %w", i, cp.Username, err)
		}
		key := usernameKey(cp.Username)
		if _, ok := r.byID[cp.ID]; ok {
			return nil, fmt.Errorf("%w: id %q", ErrDuplicateUser, cp.ID)
		}
		if _, ok := r.byUsername[key]; ok {
			return nil, fmt.Errorf("%w: username %q", ErrDuplicateUser, cp.Username)
		}
		r.byID[cp.ID] = &cp
		r.byUsername[key] = &cp
	}
	return r, nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *FileRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, ok := r.byUsername[usernameKey(username)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// List returns every user ordered by username.
func (r *FileRepository) List(ctx context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func usernameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
