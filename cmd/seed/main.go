// seed writes a development admin user directory with one user per role. Point
// ADMIN_USERS_FILE at the output. Idempotent: an existing file is left untouched.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"ai-prompt-generator/admin/internal/platform/rbac"
	"ai-prompt-generator/admin/internal/security"
	"ai-prompt-generator/admin/internal/user/domain"
	userrepo "ai-prompt-generator/admin/internal/user/repository"
)

const devPassword = "password123"

func main() {
	out := flag.String("out", "users.dev.yaml", "path of the user directory to write")
	cost := flag.Int("bcrypt-cost", 10, "bcrypt cost for the generated hashes")
	flag.Parse()

	if _, err := os.Stat(*out); err == nil {
		slog.Info("seed already applied; skipping", "path", *out)
		return
	} else if !errors.Is(err, os.ErrNotExist) {
		fatal("stat output", err)
	}

	hash, err := security.NewHasher(*cost).Hash([]byte(devPassword))
	if err != nil {
		fatal("hash password", err)
	}
	users := []*domain.User{
		{ID: "dev-user-001", Username: "root", Role: rbac.RoleSuperAdmin},
		{ID: "dev-user-002", Username: "admin", Role: rbac.RoleAdmin},
		{ID: "dev-user-003", Username: "editor", Role: rbac.RoleEditor},
		{ID: "dev-user-004", Username: "viewer", Role: rbac.RoleViewer},
	}
	for _, u := range users {
		u.PasswordHash = hash
		u.Status = domain.UserStatusActive
	}
	// Round-trip through the loader so a bad entry fails here, not at server start.
	data, err := userrepo.Marshal(users)
	if err != nil {
		fatal("encode users", err)
	}
	if _, err := userrepo.Parse(data); err != nil {
		fatal("validate users", err)
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		fatal("write users", err)
	}
	slog.Info("seed complete", "path", *out, "users", len(users), "password", devPassword)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
