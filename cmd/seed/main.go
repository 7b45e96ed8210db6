package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/database"
	"github.com/stemsi/eduadmin-backend/internal/logger"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
	"github.com/stemsi/eduadmin-backend/internal/service"
)

var studentNames = []string{
	"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
	"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	"Hendra Gunawan", "Ika Sari", "Lukman Hakim", "Maya Septiana", "Nanda Pratama",
	"Oki Setiana", "Putri Dian", "Qori Maharani", "Rafi Ahmad", "Siska Saraswati",
	"Toni Setiawan", "Umi Kalsum", "Wahyu Hidayat", "Yudi Pratama", "Zaki Anwar",
	"Alifia Zahra", "Bagas Saputra", "Citra Kirana", "Dimas Anggara", "Elisa Novita",
}

var subjects = []model.Subject{
	{Name: "Mathematics", Code: "MATH101"},
	{Name: "Physics", Code: "PHYS101"},
	{Name: "Computer Networks", Code: "NET201"},
	{Name: "Database Systems", Code: "DB201"},
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

var rooms = []model.Room{
	{Number: "A101", Building: strPtr("A"), Capacity: intPtr(30)},
	{Number: "A102", Building: strPtr("A"), Capacity: intPtr(3)},
	{Number: "B201", Building: strPtr("B"), Capacity: intPtr(40)},
	{Number: "LAB1", Building: strPtr("B")},
}

func main() {
	password := flag.String("password", "student123", "Password for every seeded student")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, nil)
	studentRepo := repository.NewStudentRepository(pool)
	subjectService := service.NewSubjectService(repository.NewSubjectRepository(pool), log)
	roomService := service.NewRoomService(repository.NewRoomRepository(pool), log)

	fmt.Println("=== Seeding reference data ===")

	created, skipped := 0, 0
	for i := range subjects {
		if err := subjectService.Create(ctx, &subjects[i]); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				skipped++
				continue
			}
			log.Fatal().Err(err).Str("code", subjects[i].Code).Msg("Failed to create subject")
		}
		created++
	}
	fmt.Printf("Subjects: %d created, %d already present\n", created, skipped)

	created, skipped = 0, 0
	for i := range rooms {
		if err := roomService.Create(ctx, &rooms[i]); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				skipped++
				continue
			}
			log.Fatal().Err(err).Str("number", rooms[i].Number).Msg("Failed to create room")
		}
		created++
	}
	fmt.Printf("Rooms: %d created, %d already present\n", created, skipped)

	// One hash shared by every seeded student.
	hash, err := authService.HashPassword(*password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	created, skipped = 0, 0
	for i, name := range studentNames {
		student := &model.Student{
			StudentNumber: fmt.Sprintf("S%05d", i+1),
			Name:          name,
			Email:         fmt.Sprintf("s%05d@students.school.test", i+1),
			PasswordHash:  hash,
		}
		if err := studentRepo.Create(ctx, student); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				skipped++
				continue
			}
			fmt.Printf("Error creating student %s (%s): %v\n", student.Name, student.StudentNumber, err)
			continue
		}
		created++
		if created%10 == 0 {
			fmt.Printf("Created %d students...\n", created)
		}
	}

	fmt.Printf("\nSeed completed! Students: %d created, %d already present.\n", created, skipped)
}
