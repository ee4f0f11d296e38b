package main

import (
	"errors"
	"fmt"

	"codeberg.org/pyqpapers/portal/internal/config"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
)

// catalogue every fresh store starts with
var seedSubjects = []subjects.CreateRequest{
	{Name: "Engineering Mathematics I", Year: "First Year", Semester: "Semester 1"},
	{Name: "Programming Fundamentals", Year: "First Year", Semester: "Semester 1"},
	{Name: "Engineering Mathematics II", Year: "First Year", Semester: "Semester 2"},
	{Name: "Data Structures", Year: "Second Year", Semester: "Semester 3"},
	{Name: "Database Systems", Year: "Second Year", Semester: "Semester 4"},
	{Name: "Operating Systems", Year: "Third Year", Semester: "Semester 5"},
	{Name: "Computer Networks", Year: "Third Year", Semester: "Semester 6"},
	{Name: "Machine Learning", Year: "Fourth Year", Semester: "Semester 7"},
}

func seed(store *devstore.Store, cfg *config.ServerConfig) error {
	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		admin, err := store.CreateAccount("Administrator", cfg.SeedAdminEmail, cfg.SeedAdminPassword, true)
		if err != nil {
			return fmt.Errorf("failed to create admin account: %w", err)
		}
		logger.Info("seeded admin account", "user_id", admin.ID, "email", admin.Email)
	} else {
		logger.Warn("SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD not set, no admin account available")
	}

	for _, req := range seedSubjects {
		if _, err := store.CreateSubject(req); err != nil && !errors.Is(err, devstore.ErrInUse) {
			return fmt.Errorf("failed to create subject %s: %w", req.Name, err)
		}
	}

	logger.Info("seeded subjects", "count", len(seedSubjects))
	return nil
}
