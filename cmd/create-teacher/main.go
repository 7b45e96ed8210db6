package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/database"
	"github.com/stemsi/eduadmin-backend/internal/logger"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
	"github.com/stemsi/eduadmin-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	// No Redis client: staff creation never touches student sessions.
	authService := service.NewAuthService(cfg, nil)
	teacherService := service.NewTeacherService(repository.NewTeacherRepository(pool), authService)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Staff Account ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Role
	fmt.Printf("Enter Role (%s, %s, %s; default %s): ", model.RoleTeacher, model.RoleDean, model.RoleAdmin, model.RoleTeacher)
	roleStr, _ := reader.ReadString('\n')
	role := model.Role(strings.ToLower(strings.TrimSpace(roleStr)))
	if role == "" {
		role = model.RoleTeacher
	}
	if !role.Valid() {
		fmt.Printf("Error: unknown role %q\n", role)
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	teacher := &model.Teacher{
		Email: email,
		Name:  name,
		Role:  role,
	}

	if err := teacherService.Create(ctx, teacher, password); err != nil {
		log.Fatal().Err(err).Msg("Failed to create staff account")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %d\n", teacher.Role, teacher.Name, teacher.Email, teacher.ID)
}
